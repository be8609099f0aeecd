package syncq

import "testing"

func TestQueueRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	commands, err := Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(commands) != 0 {
		t.Fatalf("fresh queue not empty: %d", len(commands))
	}

	first := OpenBusiness(2, 0, 100_000_000, "key-1")
	second := OpenBusiness(4, 3, 500_000_000, "key-2")
	if err := Push(first); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := Push(second); err != nil {
		t.Fatalf("push: %v", err)
	}

	commands, err = Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("queue length: got %d want 2", len(commands))
	}
	if commands[0].IdempotencyKey != "key-1" || commands[1].IdempotencyKey != "key-2" {
		t.Fatalf("replay order lost: %q, %q", commands[0].IdempotencyKey, commands[1].IdempotencyKey)
	}
	if commands[0].Method != "POST" || commands[0].Path != "/v1/businesses" {
		t.Fatalf("unexpected command shape: %s %s", commands[0].Method, commands[0].Path)
	}
	if got := commands[1].Body["amount_lamports"]; got != float64(500_000_000) {
		t.Fatalf("amount round trip: got %v", got)
	}

	if err := Save(nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	commands, err = Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(commands) != 0 {
		t.Fatalf("drained queue not empty: %d", len(commands))
	}
}
