package domain

import "time"

type Deployment string

const (
	// DeploymentSingleStore lit et corrige directement le catalogue distant.
	DeploymentSingleStore Deployment = "single-store"
	// DeploymentTwoStore maintient un miroir local synchronisé avec le catalogue.
	DeploymentTwoStore Deployment = "two-store"
)

type WriteBackStrategy string

const (
	// WriteBackPatch met à jour le seul champ "prochain épisode" des titres corrigés.
	WriteBackPatch WriteBackStrategy = "patch"
	// WriteBackReimport supprime tout le catalogue puis réinsère le miroir.
	// Les identifiants distants sont perdus à chaque passe.
	WriteBackReimport WriteBackStrategy = "reimport"
)

// ReconcileReport résume une passe de réconciliation.
type ReconcileReport struct {
	Deployment Deployment        `json:"deployment"`
	WriteBack  WriteBackStrategy `json:"writeBack,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Today      string            `json:"today"`

	Fetched     int `json:"fetched"`
	Merged      int `json:"merged"`
	Inserted    int `json:"inserted"`
	Corrected   int `json:"corrected"`
	WrittenBack int `json:"writtenBack"`
	Deleted     int `json:"deleted"`
	Failures    int `json:"failures"`
}
