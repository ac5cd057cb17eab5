package weather

import (
	"strings"

	"github.com/ternarybob/mandi/internal/models"
)

const (
	hotThreshold       = 35.0 // Celsius
	coldThreshold      = 10.0
	heavyRainThreshold = 10.0 // mm in the last hour
	goodRainThreshold  = 2.0
)

// AssessImpact derives the agricultural impact of a snapshot. Negative
// factors always win; good rainfall only lifts an otherwise neutral reading.
func AssessImpact(snapshot *models.WeatherSnapshot) models.ImpactAssessment {
	assessment := models.ImpactAssessment{
		Overall: models.ImpactNeutral,
		Factors: []string{},
	}

	negative := func(factor string) {
		assessment.Overall = models.ImpactNegative
		assessment.Factors = append(assessment.Factors, factor)
	}

	if snapshot.Temperature > hotThreshold {
		negative("High temperature - may affect crop yield")
	} else if snapshot.Temperature < coldThreshold {
		negative("Low temperature - potential frost damage")
	}

	rain := snapshot.Rainfall1h
	if rain > heavyRainThreshold {
		negative("Heavy rainfall - transport delays possible")
	} else if rain > goodRainThreshold {
		if assessment.Overall == models.ImpactNeutral {
			assessment.Overall = models.ImpactPositive
		}
		assessment.Factors = append(assessment.Factors, "Good rainfall - beneficial for crops")
	}

	condition := strings.ToLower(snapshot.Condition + " " + snapshot.Description)
	if strings.Contains(condition, "storm") || strings.Contains(condition, "thunder") {
		negative("Severe weather - crop damage risk")
	}

	return assessment
}
