package main

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := classifyErr(ErrTimeout, "hybrid", "slow")
	if KindOf(err) != ErrTimeout {
		t.Fatalf("KindOf = %s, want timeout", KindOf(err))
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if KindOf(wrapped) != ErrTimeout {
		t.Fatalf("KindOf should see through wrapping, got %s", KindOf(wrapped))
	}

	if KindOf(errors.New("plain")) != ErrConnection {
		t.Fatalf("untyped errors should report as connection, got %s", KindOf(errors.New("plain")))
	}
}

func TestTagMethod(t *testing.T) {
	err := classifyErr(ErrParse, "", "bad json")
	tagged := tagMethod(err, "schema-constrained")

	var ce *ClassificationError
	if !errors.As(tagged, &ce) || ce.Method != "schema-constrained" {
		t.Fatalf("method not stamped: %v", tagged)
	}

	// An already-tagged error keeps its original method.
	again := tagMethod(tagged, "ensemble")
	if !errors.As(again, &ce) || ce.Method != "schema-constrained" {
		t.Fatalf("existing method overwritten: %v", again)
	}
}

func TestRetryable(t *testing.T) {
	cases := map[ErrorKind]bool{
		ErrConnection:         true,
		ErrTimeout:            true,
		ErrParse:              false,
		ErrSchemaValidation:   false,
		ErrUnsupportedMethod:  false,
		ErrInsufficientQuorum: false,
	}
	for kind, want := range cases {
		if got := retryable(classifyErr(kind, "", "x")); got != want {
			t.Fatalf("retryable(%s) = %v, want %v", kind, got, want)
		}
	}
}
