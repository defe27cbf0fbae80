package helper

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CreateFolder makes the directory if it doesn't exist yet.
func CreateFolder(path string) error {
	return os.MkdirAll(path, 0o755)
}

// GenerateUUID creates a random unique UUID string, used as the document ID
// in the embedded vector store.
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// PrettyPrint dumps a value as indented JSON, used by the dry-run flow.
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
		return
	}
	fmt.Println(string(b))
}
