package mysql

const listSuitesSQL = `
SELECT id, name, tier, number, capacity, maintenance
FROM suites
ORDER BY tier, number, id
`

const listSuitesByTierSQL = `
SELECT id, name, tier, number, capacity, maintenance
FROM suites
WHERE tier = ?
ORDER BY tier, number, id
`

const reservationColumns = `id, external_id, suite_id, pet_id, customer_id, start_at, end_at, status`

// Rows overlapping [start, end) on any of the given suites, blocking
// statuses only. The IN clause is expanded by the repo.
const listBySuitePrefix = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE suite_id IN (%s)
  AND start_at < ? AND end_at > ?
  AND status IN ('pending','confirmed','checked-in')
ORDER BY suite_id, start_at, id
`

const listWindowSQL = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE start_at < ? AND end_at > ?
ORDER BY suite_id, start_at, id
`

const lockSuiteSQL = `SELECT id FROM suites WHERE id = ? FOR UPDATE`

// Guarded insert: the row lands only if no blocking reservation already
// overlaps the window on this suite. MySQL has no exclusion constraints,
// so the suite row lock taken just before serializes concurrent attempts
// and the NOT EXISTS predicate is the authoritative overlap check.
// Zero rows affected means a conflict.
const insertGuardedSQL = `
INSERT INTO reservations
  (id, external_id, suite_id, pet_id, customer_id, start_at, end_at, status)
SELECT ?, ?, ?, ?, ?, ?, ?, ?
FROM DUAL
WHERE NOT EXISTS (
  SELECT 1 FROM reservations
  WHERE suite_id = ?
    AND start_at < ? AND end_at > ?
    AND status IN ('pending','confirmed','checked-in')
)
`

const insertPlainSQL = `
INSERT INTO reservations
  (id, external_id, suite_id, pet_id, customer_id, start_at, end_at, status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const hasExternalIDSQL = `SELECT 1 FROM reservations WHERE external_id = ? LIMIT 1`

const insertMissSQL = `
INSERT INTO import_misses (external_id, reason)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE seen_at = CURRENT_TIMESTAMP
`
