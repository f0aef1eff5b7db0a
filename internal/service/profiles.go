package service

import (
	"strings"

	apperrors "github.com/portfolio-reconciler/internal/errors"
	"github.com/portfolio-reconciler/internal/models"
	"github.com/portfolio-reconciler/internal/types"
)

// ProfileLookup resolves entity ids to display profiles
type ProfileLookup interface {
	Lookup(entityID string) (models.EntityProfile, bool)
}

// ProfileDirectory is an in-memory ProfileLookup
type ProfileDirectory map[string]models.EntityProfile

// NewProfileDirectory indexes profiles by id; the first profile for an id wins
func NewProfileDirectory(profiles []models.EntityProfile) ProfileDirectory {
	dir := make(ProfileDirectory, len(profiles))
	for _, p := range profiles {
		id := strings.TrimSpace(p.ID.String())
		if id == "" {
			continue
		}
		if _, exists := dir[id]; !exists {
			dir[id] = p
		}
	}
	return dir
}

// Lookup implements ProfileLookup
func (d ProfileDirectory) Lookup(entityID string) (models.EntityProfile, bool) {
	p, ok := d[entityID]
	return p, ok
}

// entityDisplay is the resolved display data of an entity
type entityDisplay struct {
	Name     string
	Industry string
	Country  string
}

func resolveEntity(profiles ProfileLookup, entityID string, diag *Diagnostics) entityDisplay {
	unknown := entityDisplay{Name: types.UnknownLabel, Industry: types.UnknownLabel, Country: types.UnknownLabel}
	if entityID == "" {
		return unknown
	}

	p, ok := profiles.Lookup(entityID)
	if !ok {
		diag.Report(apperrors.NewUnresolvedEntityError(entityID))
		return unknown
	}

	return entityDisplay{
		Name:     orUnknown(p.Name),
		Industry: orUnknown(p.Industry),
		Country:  orUnknown(p.Country),
	}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return types.UnknownLabel
	}
	return s
}
