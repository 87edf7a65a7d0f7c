package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func SetupEnv() {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("No .env file found, reading configuration from the process environment")
	}
}

// Config returns the environment variable or defaults to empty string
func Config(key string) string {
	return os.Getenv(key)
}

// DappsDir returns the directory dapp source archives are extracted into.
func DappsDir() string {
	if dir := os.Getenv("DAPPS_DIR"); dir != "" {
		return dir
	}
	return "dapps"
}

// DefaultBranch returns the branch fetched when a dapp url carries no
// fragment.
func DefaultBranch() string {
	if branch := os.Getenv("DAPPS_DEFAULT_BRANCH"); branch != "" {
		return branch
	}
	return "master"
}
