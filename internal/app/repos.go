package app

import (
	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/repos"
)

type Repos struct {
	User              repos.UserRepo
	UserToken         repos.UserTokenRepo
	Policy            repos.PolicyRepo
	PolicyChildren    repos.PolicyChildrenRepo
	ExtractedDocument repos.ExtractedDocumentRepo
	ExtractionJob     repos.ExtractionJobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:              repos.NewUserRepo(db, log),
		UserToken:         repos.NewUserTokenRepo(db, log),
		Policy:            repos.NewPolicyRepo(db, log),
		PolicyChildren:    repos.NewPolicyChildrenRepo(db, log),
		ExtractedDocument: repos.NewExtractedDocumentRepo(db, log),
		ExtractionJob:     repos.NewExtractionJobRepo(db, log),
	}
}
