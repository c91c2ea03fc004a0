package scanner

import (
	"context"

	"pharmadesk/m/domain"
)

// StubClient returns canned demo candidates. Wired when no scanner API
// key is configured so the invoice flow stays usable offline.
type StubClient struct{}

func NewStubClient() StubClient {
	return StubClient{}
}

func (StubClient) ParsePrescription(_ context.Context, _ string) ([]domain.ParsedItem, error) {
	return []domain.ParsedItem{
		{Brand: "Napa Extend", Generic: "Paracetamol", Strength: "665mg", Dose: "1+0+1", Qty: 10, Confidence: 0.95, SellingPrice: 15},
		{Brand: "Concor", Generic: "Bisoprolol", Strength: "5mg", Dose: "0+0+1", Qty: 30, Confidence: 0.88, SellingPrice: 12, Alternatives: []string{"Bisocor", "Bison", "Cardicor"}},
	}, nil
}

func (StubClient) CheckInteractions(_ context.Context, _ []string) ([]string, error) {
	return nil, nil
}
