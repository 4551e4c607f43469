package plutus

import (
	"context"

	"github.com/shopspring/decimal"
)

// Perk is one cashback perk slot as the platform reports it.
type Perk struct {
	ID                   string           `json:"id"`
	Label                string           `json:"label"`
	PercentSpent         *decimal.Decimal `json:"percent_spent"`
	MaxMonthlyFiatReward *decimal.Decimal `json:"max_mothly_fiat_reward"` // field name misspelt upstream
	Available            *bool            `json:"available"`
}

type perksResponse struct {
	Perks          []Perk `json:"perks"`
	NextMonthPerks []Perk `json:"next_month_perks"`
	Available      int    `json:"available"`
}

// Perks returns the perks active this month.
func (c *Client) Perks(ctx context.Context) ([]Perk, error) {
	resp, err := c.fetchPerks(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Perks, nil
}

// NextMonthPerks returns the perks already selected for next month.
func (c *Client) NextMonthPerks(ctx context.Context) ([]Perk, error) {
	resp, err := c.fetchPerks(ctx)
	if err != nil {
		return nil, err
	}
	return resp.NextMonthPerks, nil
}

// PerkSpotsLeft returns how many perk slots are still selectable.
func (c *Client) PerkSpotsLeft(ctx context.Context) (int, error) {
	resp, err := c.fetchPerks(ctx)
	if err != nil {
		return 0, err
	}
	return resp.Available, nil
}

func (c *Client) fetchPerks(ctx context.Context) (perksResponse, error) {
	var resp perksResponse
	err := c.getJSON(ctx, c.cfg.APIURL+"/platform/perks", &resp)
	return resp, err
}
