package models

import "time"

// CollectionIntegrity compares one content kind between the metadata store
// and its vector collection.
type CollectionIntegrity struct {
	MetadataCount         int  `json:"metadataCount"`
	VectorCount           int  `json:"vectorCount"`
	UniqueVectorPathCount int  `json:"uniqueVectorPathCount"`
	CollectionExists      bool `json:"collectionExists"`
	IsIntact              bool `json:"isIntact"`
}

// NewCollectionIntegrity derives IsIntact from the raw counts. Vector
// chunks are not compared directly since one file may span many chunks.
func NewCollectionIntegrity(metadataCount, vectorCount, uniquePaths int, exists bool) CollectionIntegrity {
	return CollectionIntegrity{
		MetadataCount:         metadataCount,
		VectorCount:           vectorCount,
		UniqueVectorPathCount: uniquePaths,
		CollectionExists:      exists,
		IsIntact:              exists && metadataCount == uniquePaths,
	}
}

// IntegrityReport is returned by the integrity endpoint.
type IntegrityReport struct {
	RepositoryID     string              `json:"repositoryId"`
	Code             CollectionIntegrity `json:"code"`
	Discussions      CollectionIntegrity `json:"discussions"`
	OverallIntegrity bool                `json:"overallIntegrity"`
	Timestamp        time.Time           `json:"timestamp"`
}
