package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLockID(t *testing.T) {
	assert.Equal(t, GenerateLockID("collection", "medical_docs"), GenerateLockID("collection", "medical_docs"))
	assert.NotEqual(t, GenerateLockID("collection", "medical_docs"), GenerateLockID("collection", "papers"))
	// 区切りを含めてハッシュするため連結結果が同じでも別のIDになる
	assert.NotEqual(t, GenerateLockID("ab", "c"), GenerateLockID("a", "bc"))
}

func TestCollectionLockID(t *testing.T) {
	assert.Equal(t, GenerateLockID("collection", "medical_docs"), CollectionLockID("medical_docs"))
}
