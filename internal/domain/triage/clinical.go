package triage

import (
	"context"
)

// ClinicalRecord is the history and vitals snapshot returned by a clinical
// data source.
type ClinicalRecord struct {
	History History `json:"history"`
	Vitals  Vitals  `json:"vitals"`
}

// ClinicalDataProvider looks up the patient's history and current vitals.
// The accumulator calls it at most once per session.
type ClinicalDataProvider interface {
	FetchHistoryAndVitals(ctx context.Context) (ClinicalRecord, error)
}

// StubClinicalProvider returns a fixed record in place of a real EHR lookup.
type StubClinicalProvider struct{}

func (StubClinicalProvider) FetchHistoryAndVitals(_ context.Context) (ClinicalRecord, error) {
	return ClinicalRecord{
		History: History{Conditions: []string{RiskFactorAsthma}},
		Vitals:  Vitals{HeartRate: 92, Temperature: 38.1},
	}, nil
}
