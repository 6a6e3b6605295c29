package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// classifyByMessage marks errors mentioning corruption as permanent.
func classifyByMessage(err error) Class {
	if err != nil && strings.Contains(err.Error(), "corrupted") {
		return ClassPermanent
	}
	return ClassTransient
}

func fastConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 250*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 250ms", config.InitialBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), fastConfig(), classifyByMessage, "convert", func() error {
		attempts++
		return nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDo_PermanentError_SingleAttempt(t *testing.T) {
	attempts := 0
	permanent := errors.New("corrupted file")

	err := Do(context.Background(), fastConfig(), classifyByMessage, "convert", func() error {
		attempts++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("err = %v, want %v", err, permanent)
	}
	if errors.Is(err, ErrExhausted) {
		t.Error("permanent error should not be wrapped in ErrExhausted")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDo_TransientError_RetriedToExhaustion(t *testing.T) {
	attempts := 0
	transient := errors.New("temporary glitch")

	err := Do(context.Background(), fastConfig(), classifyByMessage, "convert", func() error {
		attempts++
		return transient
	})

	if !errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, transient) {
		t.Errorf("err chain missing original error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDo_TransientError_EventualSuccess(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), fastConfig(), classifyByMessage, "convert", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary glitch")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := Config{
		MaxAttempts:       3,
		InitialBackoff:    time.Minute,
		MaxBackoff:        time.Minute,
		BackoffMultiplier: 2.0,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, config, classifyByMessage, "convert", func() error {
		return errors.New("temporary glitch")
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("err = %v, want ErrContextCancelled", err)
	}
}

func TestDo_ZeroConfigUsesDefaults(t *testing.T) {
	attempts := 0

	_ = Do(context.Background(), Config{}, classifyByMessage, "convert", func() error {
		attempts++
		return errors.New("corrupted file")
	})

	// Permanent error, so still one attempt, but the empty config must not
	// short-circuit the loop.
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
