package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	gen, err := New()
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.NotNil(t, gen.sf)
}

func TestGeneratePrefixedIDs(t *testing.T) {
	t.Parallel()

	gen, err := New()
	require.NoError(t, err)

	testcases := []struct {
		name     string
		generate func() (string, error)
		prefix   string
	}{
		{
			name:     "vm ID",
			generate: gen.GenerateVMID,
			prefix:   "vm-",
		},
		{
			name:     "isolation group ID",
			generate: gen.GenerateGroupID,
			prefix:   "sg-",
		},
		{
			name:     "credential ID",
			generate: gen.GenerateCredentialID,
			prefix:   "cred-",
		},
		{
			name:     "billing record ID",
			generate: gen.GenerateBillingID,
			prefix:   "bill-",
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			id, err := tc.generate()
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(id, tc.prefix), "id %s should have prefix %s", id, tc.prefix)

			// 生成多个 ID，确保它们是唯一的
			ids := make(map[string]bool)
			for i := 0; i < 100; i++ {
				newID, err := tc.generate()
				require.NoError(t, err)
				assert.False(t, ids[newID], "ID should be unique: %s", newID)
				ids[newID] = true
			}
		})
	}
}

func TestGenerateID_ConcurrentUnique(t *testing.T) {
	t.Parallel()

	gen, err := New()
	require.NoError(t, err)

	const workers = 8
	const perWorker = 50

	var mu sync.Mutex
	seen := make(map[uint64]bool)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id, err := gen.GenerateID()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, seen[id], "ID should be unique: %d", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
