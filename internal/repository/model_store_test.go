package repository

import (
	"github.com/ahmednasr/repo-recommender/server/internal/service"
)

var (
	_ service.ModelStore = (*FileModelStore)(nil)
	_ service.ModelStore = (*MongoModelStore)(nil)
)
