package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Command is one state-changing API call captured while offline. Replaying
// reuses the original idempotency key, so a command that already landed is
// rejected by the server instead of applied twice.
type Command struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
}

// OpenBusiness captures a create-business call. Opening a position is the one
// command worth queueing offline: the deposit amount is fixed at capture time,
// so a later replay lands exactly what the player confirmed.
func OpenBusiness(slotIndex int, typeIndex int32, amountLamports int64, idempotencyKey string) Command {
	return Command{
		Method: "POST",
		Path:   "/v1/businesses",
		Body: map[string]any{
			"slot_index":      slotIndex,
			"type_index":      typeIndex,
			"amount_lamports": amountLamports,
		},
		IdempotencyKey: idempotencyKey,
	}
}

func queuePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".omr")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Command, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Command{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(commands []Command) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(cmd Command) error {
	commands, err := Load()
	if err != nil {
		return err
	}
	commands = append(commands, cmd)
	return Save(commands)
}
