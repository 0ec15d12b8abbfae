package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-llm/parley/llm"
)

func testExecutor(maxAttempts uint64) *Executor {
	return New(zerolog.Nop()).WithPolicy(maxAttempts, time.Millisecond)
}

func TestRetryBound(t *testing.T) {
	calls := 0
	final := errors.New("still failing")

	err := testExecutor(5).Do("always-fails", func() error {
		calls++
		return final
	})
	if calls != 5 {
		t.Errorf("Expected exactly 5 invocations, got %d", calls)
	}
	if !errors.Is(err, final) {
		t.Errorf("Expected the final error to propagate unchanged, got %v", err)
	}
}

func TestNoRetryOnSuccess(t *testing.T) {
	calls := 0
	err := testExecutor(5).Do("succeeds", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 invocation, got %d", calls)
	}
}

func TestSuccessAfterTransientFailures(t *testing.T) {
	calls := 0
	err := testExecutor(5).Do("flaky", func() error {
		calls++
		if calls < 3 {
			return llm.NewTransientError("timeout", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 invocations, got %d", calls)
	}
}

func TestNonRetryableBypassesRetry(t *testing.T) {
	kinds := []error{
		llm.NewValidationError("empty audio"),
		llm.NewConfigurationError("missing api key"),
		llm.NewContentFilterError("filtered"),
		llm.NewDecodeError("bad payload", nil),
	}
	for _, kindErr := range kinds {
		calls := 0
		err := testExecutor(5).Do("non-retryable", func() error {
			calls++
			return kindErr
		})
		if calls != 1 {
			t.Errorf("%v: expected 1 invocation, got %d", llm.KindOf(kindErr), calls)
		}
		if !errors.Is(err, kindErr) {
			t.Errorf("%v: expected original error back, got %v", llm.KindOf(kindErr), err)
		}
	}
}

func TestCustomRetryablePredicate(t *testing.T) {
	calls := 0
	// Retry protocol errors too, as the run orchestrator does while a
	// run settles into requires_action.
	ex := testExecutor(3).WithRetryable(func(err error) bool {
		return llm.IsRetryableError(err) || llm.IsProtocolError(err)
	})
	err := ex.Do("wrong-state", func() error {
		calls++
		return llm.NewProtocolError("run is not in requires_action")
	})
	if calls != 3 {
		t.Errorf("Expected 3 invocations, got %d", calls)
	}
	if !llm.IsProtocolError(err) {
		t.Errorf("Expected protocol error after exhaustion, got %v", err)
	}
}

func TestGenericDo(t *testing.T) {
	calls := 0
	text, err := Do(testExecutor(5), "returns-value", func() (string, error) {
		calls++
		if calls < 2 {
			return "", llm.NewTransientError("blip", nil)
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if text != "done" {
		t.Errorf("Expected result %q, got %q", "done", text)
	}
}

func TestWithPolicyClampsToOneAttempt(t *testing.T) {
	calls := 0
	_ = testExecutor(0).Do("clamped", func() error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Errorf("Expected 1 invocation with clamped policy, got %d", calls)
	}
}
