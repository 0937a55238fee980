package id

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// ExecutionPrefix namespaces execution identifiers
	ExecutionPrefix = "exec"
	// StepPrefix namespaces step identifiers
	StepPrefix = "step"

	// SuffixLength is the number of base36 characters appended after the timestamp
	SuffixLength = 7

	// timestampDigits fixes the width of the millisecond component so IDs sort lexically
	timestampDigits = 13

	base36 = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var (
	randReader = rand.Reader

	// suffixPool reuses buffers for suffix generation
	suffixPool = sync.Pool{
		New: func() any {
			b := make([]byte, SuffixLength)
			return &b
		},
	}

	// fallbackCounter disambiguates suffixes when the random source fails
	fallbackCounter atomic.Uint64
)

// NewExecutionID generates a new execution identifier
func NewExecutionID() string {
	return newPrefixed(ExecutionPrefix)
}

// NewStepID generates a new step identifier
func NewStepID() string {
	return newPrefixed(StepPrefix)
}

// NewUUID generates a new UUID v4
func NewUUID() string {
	return uuid.New().String()
}

func newPrefixed(prefix string) string {
	return fmt.Sprintf("%s_%0*d_%s", prefix, timestampDigits, time.Now().UnixMilli(), randomSuffix())
}

// randomSuffix returns SuffixLength base36 characters
func randomSuffix() string {
	bufPtr := suffixPool.Get().(*[]byte)
	defer suffixPool.Put(bufPtr)
	buf := *bufPtr

	if _, err := randReader.Read(buf); err != nil {
		// Fallback to a clock/counter mix if random fails
		n := uint64(time.Now().UnixNano()) ^ (fallbackCounter.Add(1) << 32)
		for i := range buf {
			buf[i] = base36[n%36]
			n /= 36
		}
		return string(buf)
	}

	for i := range buf {
		buf[i] = base36[int(buf[i])%len(base36)]
	}
	return string(buf)
}

// ValidateExecutionID validates an execution ID format
func ValidateExecutionID(id string) bool {
	return validatePrefixed(id, ExecutionPrefix)
}

// ValidateStepID validates a step ID format
func ValidateStepID(id string) bool {
	return validatePrefixed(id, StepPrefix)
}

func validatePrefixed(id, prefix string) bool {
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] != prefix {
		return false
	}
	if len(parts[1]) == 0 || len(parts[2]) != SuffixLength {
		return false
	}
	for _, r := range parts[1] {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, r := range parts[2] {
		if !strings.ContainsRune(base36, r) {
			return false
		}
	}
	return true
}

// ValidateUUID validates a UUID format
func ValidateUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
