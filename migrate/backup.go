package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// backupTableNameBound is how many numbered suffixes (<t>_backup,
// <t>_backup1, …) to try before falling back to a uuid-suffixed name.
// The uuid fallback only exists to guarantee termination against a
// database that already holds every numbered variant.
const backupTableNameBound = 1000

// backupTableName finds a table name derived from t that does not
// collide with any table sqlite_master currently knows about.
func backupTableName(ctx context.Context, db *sql.DB, t string) (string, error) {
	candidate := t + "_backup"
	exists, err := tableExists(ctx, db, candidate)
	if err != nil {
		return "", err
	}
	if !exists {
		return candidate, nil
	}
	for i := 1; i < backupTableNameBound; i++ {
		candidate = fmt.Sprintf("%s_backup%d", t, i)
		exists, err := tableExists(ctx, db, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	candidate = fmt.Sprintf("%s_backup_%s", t, uuid.NewString())
	exists, err = tableExists(ctx, db, candidate)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("migrate: could not find a free backup name for table %q", t)
	}
	return candidate, nil
}
