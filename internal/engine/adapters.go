package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/logging"
)

// Metadata keys attached to records by the adapters.
const (
	MetaLabel       = "label"
	MetaDescription = "description"
	MetaMeasured    = "measured"
	MetaCurrency    = "currency"
)

// CalculateForTransaction calculates a bank transaction. The amount is the
// quantity and the currency is the unit.
func (c *Calculator) CalculateForTransaction(ctx context.Context, tx emission.Transaction) emission.Outcome {
	if tx.Excluded {
		outcome := emission.NotFound(emission.ReasonExcludedTransaction)
		c.observe(outcome)
		return outcome
	}
	cat, outcome, ok := c.category(ctx, tx.CategoryID, emission.SourceTransaction, tx.ID)
	if !ok {
		return outcome
	}
	country, err := c.resolveCountry(ctx, tx.OrganizationID, tx.SiteID, tx.Country)
	if err != nil {
		return c.fail(ctx, emission.SourceTransaction, tx.ID, err)
	}

	metadata := map[string]string{MetaCurrency: emission.CanonicalUnit(tx.Currency)}
	if tx.Label != "" {
		metadata[MetaLabel] = tx.Label
	}
	return c.Calculate(ctx, Input{
		Category:       *cat,
		Quantity:       tx.Amount,
		Unit:           tx.Currency,
		Date:           tx.Date,
		Country:        country,
		SourceType:     emission.SourceTransaction,
		SourceID:       tx.ID,
		OrganizationID: tx.OrganizationID,
		SiteID:         tx.SiteID,
		Metadata:       metadata,
	})
}

// CalculateForActivity calculates a manually entered or metered activity.
func (c *Calculator) CalculateForActivity(ctx context.Context, act emission.Activity) emission.Outcome {
	cat, outcome, ok := c.category(ctx, act.CategoryID, emission.SourceActivity, act.ID)
	if !ok {
		return outcome
	}
	country, err := c.resolveCountry(ctx, act.OrganizationID, act.SiteID, act.Country)
	if err != nil {
		return c.fail(ctx, emission.SourceActivity, act.ID, err)
	}

	metadata := map[string]string{MetaMeasured: strconv.FormatBool(act.Measured)}
	if act.Description != "" {
		metadata[MetaDescription] = act.Description
	}
	return c.Calculate(ctx, Input{
		Category:       *cat,
		Quantity:       act.Quantity,
		Unit:           act.Unit,
		Date:           act.Date,
		Country:        country,
		SourceType:     emission.SourceActivity,
		SourceID:       act.ID,
		OrganizationID: act.OrganizationID,
		SiteID:         act.SiteID,
		Metadata:       metadata,
	})
}

// category loads a category. ok is false when outcome must be returned as is.
func (c *Calculator) category(
	ctx context.Context,
	id string,
	sourceType emission.SourceType,
	sourceID string,
) (*emission.Category, emission.Outcome, bool) {
	if id == "" {
		outcome := emission.NotFound(emission.ReasonMissingCategory)
		c.observe(outcome)
		return nil, outcome, false
	}
	cat, err := c.stores.Categories.GetCategory(ctx, id)
	switch {
	case errors.Is(err, emission.ErrNotFound):
		logging.FromContext(ctx).Debug().
			Str("component", "engine").
			Str("source_type", string(sourceType)).
			Str("source_id", sourceID).
			Str("category_id", id).
			Msg("category not found")
		outcome := emission.NotFound(emission.ReasonMissingCategory)
		c.observe(outcome)
		return nil, outcome, false
	case err != nil:
		return nil, c.fail(ctx, sourceType, sourceID, err), false
	}
	return cat, emission.Outcome{}, true
}

// resolveCountry prefers the site country, then the item's own country, then
// the organization's.
func (c *Calculator) resolveCountry(ctx context.Context, orgID, siteID, own string) (string, error) {
	if siteID != "" {
		site, err := c.stores.Sources.GetSite(ctx, siteID)
		switch {
		case err == nil && site.Country != "":
			return emission.NormalizeCountry(site.Country), nil
		case err != nil && !errors.Is(err, emission.ErrNotFound):
			return "", fmt.Errorf("loading site %s: %w", siteID, err)
		}
	}
	if own != "" {
		return emission.NormalizeCountry(own), nil
	}
	org, err := c.stores.Sources.GetOrganization(ctx, orgID)
	switch {
	case errors.Is(err, emission.ErrNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("loading organization %s: %w", orgID, err)
	}
	return emission.NormalizeCountry(org.Country), nil
}

func (c *Calculator) fail(ctx context.Context, sourceType emission.SourceType, sourceID string, err error) emission.Outcome {
	logging.FromContext(ctx).Error().
		Str("component", "engine").
		Str("source_type", string(sourceType)).
		Str("source_id", sourceID).
		Err(err).
		Msg("calculation failed")
	outcome := emission.Failed(err)
	c.observe(outcome)
	return outcome
}
