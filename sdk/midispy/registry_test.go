package midispy

import (
	"errors"
	"testing"

	"github.com/leandrodaf/midispy/sdk/contracts"
)

func TestRegistryAddDuplicate(t *testing.T) {
	r := NewRegistry()
	endpoint := contracts.Endpoint{Ref: 7, Name: "IAC Driver Bus 1"}

	if err := r.Add(endpoint); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(endpoint); !errors.Is(err, contracts.ErrConnectionExists) {
		t.Fatalf("duplicate add: got %v, want ErrConnectionExists", err)
	}
	if got := r.List(); len(got) != 1 {
		t.Fatalf("registry changed by failed add: %v", got)
	}
}

func TestRegistryRemoveMissing(t *testing.T) {
	r := NewRegistry()
	if err := r.Remove(99); !errors.Is(err, contracts.ErrConnectionNotFound) {
		t.Fatalf("remove missing: got %v, want ErrConnectionNotFound", err)
	}

	endpoint := contracts.Endpoint{Ref: 7, Name: "Keyboard"}
	if err := r.Add(endpoint); err != nil {
		t.Fatal(err)
	}
	if err := r.Remove(7); err != nil {
		t.Fatal(err)
	}
	if err := r.Remove(7); !errors.Is(err, contracts.ErrConnectionNotFound) {
		t.Fatalf("second remove: got %v, want ErrConnectionNotFound", err)
	}
}

func TestRegistryResolveAndContains(t *testing.T) {
	r := NewRegistry()
	endpoint := contracts.Endpoint{Ref: 3, Name: "Synth"}
	if err := r.Add(endpoint); err != nil {
		t.Fatal(err)
	}

	if !r.Contains(3) || r.Contains(4) {
		t.Error("Contains gave wrong answers")
	}
	got, ok := r.Resolve(3)
	if !ok || got != endpoint {
		t.Errorf("Resolve(3) = %+v, %v", got, ok)
	}
	if _, ok := r.Resolve(4); ok {
		t.Error("Resolve(4) found a connection that was never added")
	}
}
