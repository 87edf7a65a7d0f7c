package tags

import (
	"strconv"
	"strings"

	"github.com/mamatcyber90/crypti/src/core/models"
	"github.com/mamatcyber90/crypti/src/core/storage"
	"github.com/mamatcyber90/crypti/src/utils"
)

// TagUsage reports how many tags_refs rows exist for one tag id.
type TagUsage struct {
	TagID int64 `gorm:"column:tagId" json:"tagId"`
	Count int64 `gorm:"column:counter" json:"count"`
}

// DappMatch reports, for one dapp id, how many of the requested tag ids that
// dapp is associated with.
type DappMatch struct {
	DappID int64 `gorm:"column:dappId" json:"dappId"`
	Count  int64 `gorm:"column:counter" json:"count"`
}

// ValueUsage is TagUsage with the tag id resolved to its value.
type ValueUsage struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// Index maintains the many-to-many association between dapps and normalized
// tag values.
type Index struct {
	exec *storage.Executor
}

func NewIndex(exec *storage.Executor) *Index {
	return &Index{exec: exec}
}

// GetOrCreate resolves every value to a Tag row, inserting the ones that do
// not exist yet. Values are normalized and deduplicated first, so inputs that
// collide after normalization share a single id across the call. Returns the
// union of pre-existing and newly created tags.
func (ix *Index) GetOrCreate(values []string) ([]models.Tag, error) {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if normalized := Normalize(value); normalized != "" {
			cleaned = append(cleaned, normalized)
		}
	}
	cleaned = utils.RemoveDuplicates(cleaned)
	if len(cleaned) == 0 {
		return nil, nil
	}

	existing, err := ix.ByValues(cleaned)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, tag := range existing {
		known[tag.Value] = true
	}

	for _, value := range cleaned {
		if known[value] {
			continue
		}
		// A concurrent insert of the same value degrades to a no-op here;
		// the re-read below picks up whichever row won.
		if err := ix.exec.InsertIgnore("tags", &models.Tag{Value: value}); err != nil {
			return nil, err
		}
	}

	return ix.ByValues(cleaned)
}

// ByValue resolves a single tag by its exact normalized value. Returns nil
// when the tag does not exist.
func (ix *Index) ByValue(value string) (*models.Tag, error) {
	var found []models.Tag
	err := ix.exec.Select(storage.Query{
		Table: "tags",
		Where: []storage.Condition{{Expr: "value = ?", Args: []interface{}{value}}},
	}, storage.Options{Limit: 1}, &found)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// ByValues resolves tags by a set of normalized values.
func (ix *Index) ByValues(values []string) ([]models.Tag, error) {
	if len(values) == 0 {
		return nil, nil
	}
	var found []models.Tag
	err := ix.exec.Select(storage.Query{
		Table: "tags",
		Where: []storage.Condition{{Expr: "value IN ?", Args: []interface{}{values}}},
	}, storage.Options{}, &found)
	return found, err
}

// ByIDs resolves tags by id.
func (ix *Index) ByIDs(ids []int64) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []models.Tag
	err := ix.exec.Select(storage.Query{
		Table: "tags",
		Where: []storage.Condition{{Expr: "id IN ?", Args: []interface{}{ids}}},
	}, storage.Options{}, &found)
	return found, err
}

// Associate inserts one tags_refs row per tag id. An empty id list is an
// immediate success without a storage round-trip.
func (ix *Index) Associate(dappID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]string, len(tagIDs))
	for i, tagID := range tagIDs {
		// Integer formatting is the escaping here; no caller-controlled
		// string ever reaches the statement text.
		rows[i] = "(" + strconv.FormatInt(dappID, 10) + "," + strconv.FormatInt(tagID, 10) + ")"
	}
	return ix.exec.Exec(`INSERT INTO tags_refs ("dappId", "tagId") VALUES ` + strings.Join(rows, ","))
}

// RefsByTag fetches the association rows for one tag id.
func (ix *Index) RefsByTag(tagID int64) ([]models.TagRef, error) {
	var refs []models.TagRef
	err := ix.exec.Select(storage.Query{
		Table: "tags_refs",
		Where: []storage.Condition{{Expr: `"tagId" = ?`, Args: []interface{}{tagID}}},
	}, storage.Options{}, &refs)
	return refs, err
}

// ForDapps groups the tag values referenced by each of the given dapp ids.
// Every requested id is present in the result; dapps without associations map
// to an empty slice.
func (ix *Index) ForDapps(dappIDs []int64) (map[int64][]string, error) {
	grouped := make(map[int64][]string, len(dappIDs))
	for _, id := range dappIDs {
		grouped[id] = []string{}
	}
	if len(dappIDs) == 0 {
		return grouped, nil
	}

	var refs []models.TagRef
	err := ix.exec.Select(storage.Query{
		Table: "tags_refs",
		Where: []storage.Condition{{Expr: `"dappId" IN ?`, Args: []interface{}{dappIDs}}},
	}, storage.Options{}, &refs)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return grouped, nil
	}

	tagIDs := make([]int64, 0, len(refs))
	seen := make(map[int64]bool, len(refs))
	for _, ref := range refs {
		if !seen[ref.TagID] {
			seen[ref.TagID] = true
			tagIDs = append(tagIDs, ref.TagID)
		}
	}

	resolved, err := ix.ByIDs(tagIDs)
	if err != nil {
		return nil, err
	}
	values := make(map[int64]string, len(resolved))
	for _, tag := range resolved {
		values[tag.ID] = tag.Value
	}

	for _, ref := range refs {
		if value, ok := values[ref.TagID]; ok {
			grouped[ref.DappID] = append(grouped[ref.DappID], value)
		}
	}
	return grouped, nil
}

// UsageCounts aggregates tags_refs rows per tag id, most used first. A nil or
// empty id list counts over all tags.
func (ix *Index) UsageCounts(tagIDs []int64) ([]TagUsage, error) {
	query := storage.Query{
		Table:   "tags_refs",
		Fields:  []string{`"tagId"`, `COUNT("tagId") AS counter`},
		GroupBy: "tagId",
	}
	if len(tagIDs) > 0 {
		query.Where = []storage.Condition{{Expr: `"tagId" IN ?`, Args: []interface{}{tagIDs}}}
	}
	var usage []TagUsage
	err := ix.exec.Select(query, storage.Options{Order: "-counter"}, &usage)
	return usage, err
}

// DappsMatchingAny counts, per dapp id, how many of the supplied tag ids that
// dapp carries, best match first. Used to rank multi-tag search results.
func (ix *Index) DappsMatchingAny(tagIDs []int64) ([]DappMatch, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	var matches []DappMatch
	err := ix.exec.Select(storage.Query{
		Table:   "tags_refs",
		Fields:  []string{`"dappId"`, `COUNT("dappId") AS counter`},
		Where:   []storage.Condition{{Expr: `"tagId" IN ?`, Args: []interface{}{tagIDs}}},
		GroupBy: "dappId",
	}, storage.Options{Order: "-counter"}, &matches)
	return matches, err
}

// Usage resolves UsageCounts over all tags into tag values, preserving the
// most-used-first order.
func (ix *Index) Usage() ([]ValueUsage, error) {
	counts, err := ix.UsageCounts(nil)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return []ValueUsage{}, nil
	}

	ids := make([]int64, len(counts))
	for i, usage := range counts {
		ids[i] = usage.TagID
	}
	resolved, err := ix.ByIDs(ids)
	if err != nil {
		return nil, err
	}
	values := make(map[int64]string, len(resolved))
	for _, tag := range resolved {
		values[tag.ID] = tag.Value
	}

	out := make([]ValueUsage, 0, len(counts))
	for _, usage := range counts {
		if value, ok := values[usage.TagID]; ok {
			out = append(out, ValueUsage{Tag: value, Count: usage.Count})
		}
	}
	return out, nil
}
