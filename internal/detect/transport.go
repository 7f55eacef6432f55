package detect

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteFile serializes the decision to the transport file consumed by the
// patcher.
func WriteFile(path string, d Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding decision: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing decision file %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a decision from the transport file.
func ReadFile(path string) (Decision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Decision{}, fmt.Errorf("reading decision file %s: %w", path, err)
	}
	var d Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return Decision{}, fmt.Errorf("decoding decision file %s: %w", path, err)
	}
	return d, nil
}
