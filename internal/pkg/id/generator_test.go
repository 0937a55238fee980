package id

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecutionID(t *testing.T) {
	t.Run("has execution prefix and valid shape", func(t *testing.T) {
		id := NewExecutionID()
		assert.True(t, strings.HasPrefix(id, "exec_"))
		assert.True(t, ValidateExecutionID(id), "generated id %q should validate", id)
		assert.False(t, ValidateStepID(id))
	})
}

func TestNewStepID(t *testing.T) {
	id := NewStepID()
	assert.True(t, strings.HasPrefix(id, "step_"))
	assert.True(t, ValidateStepID(id))
	assert.False(t, ValidateExecutionID(id))
}

func TestIDsAreDistinct(t *testing.T) {
	const n = 10000

	seen := make(map[string]struct{}, 2*n)
	for i := 0; i < n; i++ {
		for _, id := range []string{NewExecutionID(), NewStepID()} {
			_, dup := seen[id]
			require.False(t, dup, "duplicate id %s", id)
			seen[id] = struct{}{}
		}
	}
}

func TestIDsAreDistinctConcurrently(t *testing.T) {
	const workers = 8
	const perWorker = 2000

	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := make(map[string]struct{}, workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, NewExecutionID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestIDsSortByCreationTime(t *testing.T) {
	first := NewExecutionID()
	second := NewExecutionID()

	// Compare only the time component; suffixes are random
	assert.LessOrEqual(t, strings.Split(first, "_")[1], strings.Split(second, "_")[1])
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestRandomSuffixFallback(t *testing.T) {
	orig := randReader
	randReader = failingReader{}
	defer func() { randReader = orig }()

	a := NewStepID()
	b := NewStepID()
	assert.True(t, ValidateStepID(a))
	assert.NotEqual(t, a, b)
}

func TestValidatePrefixed(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"valid", "exec_1700000000000_abc1234", true},
		{"wrong prefix", "run_1700000000000_abc1234", false},
		{"missing suffix", "exec_1700000000000", false},
		{"short suffix", "exec_1700000000000_abc", false},
		{"non numeric time", "exec_17000x0000000_abc1234", false},
		{"uppercase suffix", "exec_1700000000000_ABC1234", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateExecutionID(tt.id))
		})
	}
}

func TestValidateUUID(t *testing.T) {
	assert.True(t, ValidateUUID(NewUUID()))
	assert.False(t, ValidateUUID("not-a-uuid"))
}

func BenchmarkNewExecutionID(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = NewExecutionID()
	}
}

func BenchmarkNewStepIDParallel(b *testing.B) {
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = NewStepID()
		}
	})
}
