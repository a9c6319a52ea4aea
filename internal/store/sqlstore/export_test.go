package sqlstore

import "context"

// Reset empties every data table. Used by the shared Postgres conformance run.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{
		"emission_records", "activities", "transactions", "sites", "organizations", "emission_factors", "categories",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
