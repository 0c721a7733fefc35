// Package utils holds the shared router and id helpers.
//
// Local dependencies for development:
//
//	docker run -p 6379:6379 -d redis
//	docker run -p 6333:6333 -p 6334:6334 -v thesisIndex:/qdrant/storage qdrant/qdrant   (INDEX_BACKEND=qdrant)
//
// Regenerate the API docs after changing handler annotations:
//
//	swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
package utils
