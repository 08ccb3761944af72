package domain

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "docassist:"

// Key prefixes per record family.
const (
	BlobKeyPrefix        = KeyPrefix + "blob:"
	ChunkKeyPrefix       = KeyPrefix + "chunk:"
	PermissionKeyPrefix  = KeyPrefix + "permission:"
	EmbeddingCachePrefix = KeyPrefix + "emb_cache:"
	BudgetKeyPrefix      = KeyPrefix + "budget:"
)
