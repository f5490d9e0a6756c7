package livestock

import (
	"farm-backend/internal/financial"
	"farm-backend/internal/models"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type BatchPerformance struct {
	BatchID                  uint                        `json:"batchId"`
	BatchNumber              string                      `json:"batchNumber"`
	BatchStatus              models.BatchStatus          `json:"batchStatus"`
	InitialQuantity          int                         `json:"initialQuantity"`
	CurrentQuantity          int                         `json:"currentQuantity"`
	Losses                   int                         `json:"losses"`
	SurvivalRate             decimal.Decimal             `json:"survivalRate"`
	TotalAnimals             int                         `json:"totalAnimals"`
	ActiveAnimals            int                         `json:"activeAnimals"`
	AverageWeight            decimal.Decimal             `json:"averageWeight"`
	HealthStatusDistribution map[models.HealthStatus]int `json:"healthStatusDistribution"`
	// MortalityRate is the number of deceased animals, not a ratio.
	MortalityRate int             `json:"mortalityRate"`
	CostPerHead   decimal.Decimal `json:"costPerHead"`
}

// Performance derives batch metrics from its animals.
// Average weight covers active animals with a recorded weight.
func Performance(batch models.AnimalBatch, animals []models.Animal) BatchPerformance {
	active := lo.Filter(animals, func(a models.Animal, _ int) bool {
		return a.Status == models.AnimalActive
	})
	weighed := lo.Filter(active, func(a models.Animal, _ int) bool {
		return a.CurrentWeight.Valid
	})

	avg := decimal.Zero
	if len(weighed) > 0 {
		sum := decimal.Zero
		for _, a := range weighed {
			sum = sum.Add(a.CurrentWeight.Decimal)
		}
		avg = sum.Div(decimal.NewFromInt(int64(len(weighed))))
	}

	survival := decimal.Zero
	if batch.InitialQuantity > 0 {
		survival = decimal.NewFromInt(int64(batch.CurrentQuantity)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(batch.InitialQuantity)))
	}

	costPerHead := decimal.Zero
	if batch.InitialQuantity > 0 {
		costPerHead = batch.TotalCost.Div(decimal.NewFromInt(int64(batch.InitialQuantity)))
	}

	distribution := lo.CountValuesBy(active, func(a models.Animal) models.HealthStatus {
		return a.HealthStatus
	})

	return BatchPerformance{
		BatchID:                  batch.ID,
		BatchNumber:              batch.BatchNumber,
		BatchStatus:              batch.BatchStatus,
		InitialQuantity:          batch.InitialQuantity,
		CurrentQuantity:          batch.CurrentQuantity,
		Losses:                   batch.InitialQuantity - batch.CurrentQuantity,
		SurvivalRate:             financial.Round2(survival),
		TotalAnimals:             len(animals),
		ActiveAnimals:            len(active),
		AverageWeight:            avg.Round(3),
		HealthStatusDistribution: distribution,
		MortalityRate: lo.CountBy(animals, func(a models.Animal) bool {
			return a.Status == models.AnimalDeceased
		}),
		CostPerHead: financial.Round2(costPerHead),
	}
}
