package postgres

// SQL queries for the events table.

const (
	// querySaveEvent inserts an event row. The caller generates the UUID;
	// created_at comes back from the database clock so the stored value and
	// the returned record always agree.
	querySaveEvent = `
		INSERT INTO events (
			id, name, attributes, profile_attributes
		)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	// queryDeleteEventsBefore purges rows older than the retention cutoff.
	queryDeleteEventsBefore = `
		DELETE FROM events
		WHERE created_at < $1
	`
)
