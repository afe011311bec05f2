package store

// SQL query constants organized by entity.
// All SQL lives here — PostgresStore methods reference these constants.

// Activity queries.
const (
	queryCreateActivity = `
		INSERT INTO activities (
			id, marketplace_id, activity_type, date_from, date_to,
			action, status, created_at, updated_at
		) VALUES (
			@id, @marketplace_id, @activity_type, @date_from, @date_to,
			@action, @status, now(), now()
		)
		RETURNING created_at, updated_at`

	queryGetActivity = `
		SELECT id, marketplace_id, activity_type, date_from, date_to,
			action, status, orders_fetched, items_fetched, duration_seconds,
			COALESCE(detail, ''), COALESCE(error_message, ''), database_saved,
			created_at, updated_at
		FROM activities
		WHERE id = $1`

	queryCompleteActivity = `
		UPDATE activities SET
			status = @status,
			orders_fetched = @orders_fetched,
			items_fetched = @items_fetched,
			duration_seconds = @duration_seconds,
			detail = @detail,
			error_message = @error_message,
			database_saved = @database_saved,
			updated_at = now()
		WHERE id = @id`

	queryActivityStats = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COALESCE(SUM(orders_fetched), 0),
			COALESCE(SUM(items_fetched), 0)
		FROM activities
		WHERE created_at >= $1`

	queryActivityStatsByMarketplace = `
		SELECT marketplace_id, COUNT(*)
		FROM activities
		WHERE created_at >= $1
		GROUP BY marketplace_id`
)

// Job run queries.
const (
	queryInsertJobRun = `
		INSERT INTO job_runs (id, job_name, started_at, status)
		VALUES ($1, $2, now(), 'running')
		RETURNING id`

	queryCompleteJobRun = `
		UPDATE job_runs SET
			completed_at = now(),
			status = $2,
			error = $3
		WHERE id = $1`

	queryListJobRuns = `
		SELECT id, job_name, started_at, completed_at, status, COALESCE(error, '')
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryListLatestJobRuns = `
		SELECT DISTINCT ON (job_name)
			id, job_name, started_at, completed_at, status, COALESCE(error, '')
		FROM job_runs
		ORDER BY job_name, started_at DESC`

	queryHasRunningJob = `
		SELECT EXISTS(
			SELECT 1 FROM job_runs
			WHERE job_name = $1 AND status = 'running'
		)`

	queryRecoverStaleJobRuns = `
		UPDATE job_runs SET
			status = 'failed',
			completed_at = now(),
			error = 'marked stale: no completion recorded'
		WHERE status = 'running' AND started_at < $1`
)
