package cli

import (
	"fmt"

	"tradedesk/internal/models"
)

func formatPrice(row models.DisplayRow) string {
	if row.PriceLoading {
		return "..."
	}
	if row.Quote == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", row.Quote.Price)
}

func formatChange(output *Output, row models.DisplayRow) string {
	if row.PriceLoading || row.Quote == nil {
		return "-"
	}

	sign := ""
	if row.Quote.Change > 0 {
		sign = "+"
	}
	text := fmt.Sprintf("%s%.2f (%s%.2f%%)", sign, row.Quote.Change, sign, row.Quote.ChangePercent)
	switch {
	case row.Quote.Change > 0:
		return output.Green(text)
	case row.Quote.Change < 0:
		return output.Red(text)
	default:
		return text
	}
}

func formatAction(output *Output, row models.DisplayRow) string {
	if !row.HasRecommendation {
		return output.DimText("PENDING")
	}
	switch row.Action {
	case models.ActionBuy:
		return output.Green(string(row.Action))
	case models.ActionSell:
		return output.Red(string(row.Action))
	default:
		return output.Yellow(string(row.Action))
	}
}

func formatConfidence(row models.DisplayRow) string {
	if !row.HasRecommendation {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", row.Confidence*100)
}
