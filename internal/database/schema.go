package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists idempotent DDL statements in dependency order.  bookings
// enforces "one confirmed booking per seat" through a generated column
// that is NULL for any other status, since MySQL has no partial indexes.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name       VARCHAR(255)    NOT NULL,
		starts_at  DATETIME        NOT NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seats (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		event_id    BIGINT UNSIGNED NOT NULL,
		row_label   VARCHAR(8)      NOT NULL,
		seat_number INT UNSIGNED    NOT NULL,
		status      ENUM('AVAILABLE','HELD','BOOKED') NOT NULL DEFAULT 'AVAILABLE',
		holder_id   VARCHAR(64)     NULL,
		held_until  DATETIME        NULL,
		created_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_seats_position (event_id, row_label, seat_number),
		KEY idx_seats_status (status),
		CONSTRAINT fk_seats_event FOREIGN KEY (event_id) REFERENCES events (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		seat_id        BIGINT UNSIGNED NOT NULL,
		holder_id      VARCHAR(64)     NOT NULL,
		status         ENUM('CONFIRMED','REVOKED') NOT NULL DEFAULT 'CONFIRMED',
		created_at     DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		active_seat_id BIGINT UNSIGNED AS (IF(status = 'CONFIRMED', seat_id, NULL)) STORED,
		PRIMARY KEY (id),
		UNIQUE KEY uq_bookings_active_seat (active_seat_id),
		KEY idx_bookings_holder (holder_id),
		CONSTRAINT fk_bookings_seat FOREIGN KEY (seat_id) REFERENCES seats (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS test_runs (
		id           CHAR(36)     NOT NULL,
		status       ENUM('RUNNING','COMPLETED') NOT NULL DEFAULT 'RUNNING',
		total_actors INT UNSIGNED NOT NULL,
		total_seats  INT UNSIGNED NOT NULL,
		started_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at   DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_test_runs_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS test_actors (
		id     CHAR(36) NOT NULL,
		run_id CHAR(36) NOT NULL,
		PRIMARY KEY (id),
		CONSTRAINT fk_test_actors_run FOREIGN KEY (run_id) REFERENCES test_runs (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS test_seats (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		run_id      CHAR(36)        NOT NULL,
		row_label   VARCHAR(8)      NOT NULL,
		seat_number INT UNSIGNED    NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_test_seats_position (run_id, row_label, seat_number),
		CONSTRAINT fk_test_seats_run FOREIGN KEY (run_id) REFERENCES test_runs (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS test_seat_locks (
		seat_id   BIGINT UNSIGNED NOT NULL,
		actor_id  CHAR(36)        NOT NULL,
		locked_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (seat_id),
		CONSTRAINT fk_test_locks_seat FOREIGN KEY (seat_id) REFERENCES test_seats (id) ON DELETE CASCADE,
		CONSTRAINT fk_test_locks_actor FOREIGN KEY (actor_id) REFERENCES test_actors (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS test_bookings (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		run_id      CHAR(36)        NOT NULL,
		actor_id    CHAR(36)        NOT NULL,
		seat_row    VARCHAR(8)      NOT NULL,
		seat_number INT UNSIGNED    NOT NULL,
		booked_at   DATETIME(3)     NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		PRIMARY KEY (id),
		KEY idx_test_bookings_run (run_id),
		CONSTRAINT fk_test_bookings_run FOREIGN KEY (run_id) REFERENCES test_runs (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates every table that does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
