package main

import (
	"fmt"
	"os"

	"vitalwatch/internal/common/database"
	"vitalwatch/internal/config"
)

// 创建 vital_signs 表（部署时执行一次）
const schema = `
CREATE TABLE IF NOT EXISTS vital_signs (
	id          BIGSERIAL PRIMARY KEY,
	user_id     TEXT NOT NULL,
	user_name   TEXT NOT NULL DEFAULT '',
	temp        DOUBLE PRECISION NOT NULL,
	heart_rate  INTEGER NOT NULL,
	oxygen      DOUBLE PRECISION NOT NULL,
	state       TEXT NOT NULL,
	measurement TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vital_signs_user_time
	ON vital_signs (user_id, recorded_at);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create vital_signs table: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("vital_signs table ready")
}
