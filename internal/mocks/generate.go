package mocks

//go:generate mockgen -destination=token_provider.go -package=mocks okazje-ingest/internal/marketplace TokenProvider
//go:generate mockgen -destination=indexer.go -package=mocks okazje-ingest/internal/indexing Indexer
