package dapps

import (
	"errors"
	"strings"

	"github.com/mamatcyber90/crypti/src/core/models"
	"github.com/mamatcyber90/crypti/src/core/storage"
	"github.com/mamatcyber90/crypti/src/modules/tags"
	"github.com/mamatcyber90/crypti/src/utils"
)

// ErrNotFound reports an id that does not resolve to a registered dapp.
var ErrNotFound = errors.New("dapp not found")

// CreateInput is the accepted payload for registering a dapp.
type CreateInput struct {
	Name        string   `json:"name" validate:"required,min=1,max=16"`
	Description string   `json:"description" validate:"max=140"`
	URL         string   `json:"url" validate:"required,repourl"`
	Tags        []string `json:"tags" validate:"max=10"`
}

// ListOptions enumerates every optional list parameter explicitly. A nil IDs
// slice means no id filter; a nil or empty Order falls back to name order.
type ListOptions struct {
	IDs    []int64
	Order  interface{}
	Limit  int
	Offset int
}

// Registry owns the dapp entity: CRUD, search and composition with the tag
// index. Constructed once with its dependencies; it holds no ambient state.
type Registry struct {
	exec  *storage.Executor
	index *tags.Index
}

func NewRegistry(exec *storage.Executor, index *tags.Index) *Registry {
	return &Registry{exec: exec, index: index}
}

// Get fetches a single dapp by id, or nil when it does not exist. Tags are
// not populated here; list operations do that, single lookups never did.
func (r *Registry) Get(id int64) (*models.Dapp, error) {
	var found []models.Dapp
	err := r.exec.Select(storage.Query{
		Table: "dapps",
		Where: []storage.Condition{{Expr: "id = ?", Args: []interface{}{id}}},
	}, storage.Options{Limit: 1}, &found)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// List fetches dapps, optionally restricted to a set of ids, with tags
// populated on every result.
func (r *Registry) List(opts ListOptions) ([]models.Dapp, error) {
	query := storage.Query{Table: "dapps"}
	if opts.IDs != nil {
		query.Where = append(query.Where, storage.Condition{Expr: "id IN ?", Args: []interface{}{opts.IDs}})
	}

	var list []models.Dapp
	err := r.exec.Select(query, storage.Options{
		Order:  defaultOrder(opts.Order),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}, &list)
	if err != nil {
		return nil, err
	}
	return r.populateTags(list)
}

// Search splits text on whitespace and returns the dapps where every term
// appears in the name or the description. Tags populated on the result.
func (r *Registry) Search(text string, opts ListOptions) ([]models.Dapp, error) {
	query := storage.Query{Table: "dapps"}
	for _, term := range strings.Fields(text) {
		pattern := "%" + term + "%"
		query.Where = append(query.Where, storage.Condition{
			Expr: "(name LIKE ? OR description LIKE ?)",
			Args: []interface{}{pattern, pattern},
		})
	}

	var list []models.Dapp
	err := r.exec.Select(query, storage.Options{
		Order:  defaultOrder(opts.Order),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}, &list)
	if err != nil {
		return nil, err
	}
	return r.populateTags(list)
}

// ByTagValue returns the dapps carrying the given normalized tag value, empty
// when the tag does not exist or has no associations.
func (r *Registry) ByTagValue(value string) ([]models.Dapp, error) {
	tag, err := r.index.ByValue(value)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return []models.Dapp{}, nil
	}

	refs, err := r.index.RefsByTag(tag.ID)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return []models.Dapp{}, nil
	}

	ids := make([]int64, len(refs))
	for i, ref := range refs {
		ids[i] = ref.DappID
	}
	return r.List(ListOptions{IDs: ids})
}

// ByTagValues returns the dapps matching at least one of the given normalized
// tag values, ordered by how many of them each dapp carries.
func (r *Registry) ByTagValues(values []string) ([]models.Dapp, error) {
	resolved, err := r.index.ByValues(values)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return []models.Dapp{}, nil
	}

	tagIDs := make([]int64, len(resolved))
	for i, tag := range resolved {
		tagIDs[i] = tag.ID
	}
	matches, err := r.index.DappsMatchingAny(tagIDs)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []models.Dapp{}, nil
	}

	ids := make([]int64, len(matches))
	for i, match := range matches {
		ids[i] = match.DappID
	}
	list, err := r.List(ListOptions{IDs: ids})
	if err != nil {
		return nil, err
	}

	// List comes back name-ordered; restore the match-count ranking.
	byID := make(map[int64]models.Dapp, len(list))
	for _, dapp := range list {
		byID[dapp.ID] = dapp
	}
	ranked := make([]models.Dapp, 0, len(list))
	for _, match := range matches {
		if dapp, ok := byID[match.DappID]; ok {
			ranked = append(ranked, dapp)
		}
	}
	return ranked, nil
}

// TagUsage reports how many dapps reference each known tag, most used first.
func (r *Registry) TagUsage() ([]tags.ValueUsage, error) {
	return r.index.Usage()
}

// Create inserts the dapp row, then registers and associates its tags. The
// two steps are not transactional: a failure after the insert leaves the dapp
// registered without its intended tags, and that state is surfaced, not
// rolled back.
func (r *Registry) Create(input CreateInput) (*models.Dapp, error) {
	dapp := &models.Dapp{
		Name:        input.Name,
		Description: input.Description,
		URL:         input.URL,
		Tags:        []string{},
	}
	if err := r.exec.Insert("dapps", dapp); err != nil {
		return nil, err
	}

	cleaned := make([]string, 0, len(input.Tags))
	for _, raw := range input.Tags {
		if value := tags.Normalize(raw); value != "" {
			cleaned = append(cleaned, value)
		}
	}
	cleaned = utils.RemoveDuplicates(cleaned)
	if len(cleaned) == 0 {
		return dapp, nil
	}

	created, err := r.index.GetOrCreate(cleaned)
	if err != nil {
		return nil, err
	}
	tagIDs := make([]int64, len(created))
	for i, tag := range created {
		tagIDs[i] = tag.ID
	}
	if err := r.index.Associate(dapp.ID, tagIDs); err != nil {
		return nil, err
	}

	for _, tag := range created {
		dapp.Tags = append(dapp.Tags, tag.Value)
	}
	return dapp, nil
}

// Remove deletes the dapp row, then its tags_refs rows. The id is the primary
// key, so the first delete touches at most one row. The second step runs
// outside any transaction; a failure between the two leaves orphan refs
// visible rather than masked. Tags themselves are never deleted.
func (r *Registry) Remove(id int64) error {
	affected, err := r.exec.Delete(storage.Query{
		Table: "dapps",
		Where: []storage.Condition{{Expr: "id = ?", Args: []interface{}{id}}},
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	_, err = r.exec.Delete(storage.Query{
		Table: "tags_refs",
		Where: []storage.Condition{{Expr: `"dappId" = ?`, Args: []interface{}{id}}},
	})
	return err
}

func (r *Registry) populateTags(list []models.Dapp) ([]models.Dapp, error) {
	if len(list) == 0 {
		return []models.Dapp{}, nil
	}
	ids := make([]int64, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	grouped, err := r.index.ForDapps(ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Tags = grouped[list[i].ID]
	}
	return list, nil
}

func defaultOrder(order interface{}) interface{} {
	switch value := order.(type) {
	case nil:
		return "name"
	case string:
		if strings.TrimSpace(value) == "" {
			return "name"
		}
	}
	return order
}
