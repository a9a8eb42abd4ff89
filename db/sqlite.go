package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// ErrNotInitialized is returned by every query made before InitDB.
var ErrNotInitialized = errors.New("database not initialized")

// InitDB opens (or creates) the SQLite database and its tables
func InitDB(path string) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        predicted_label INTEGER NOT NULL,
        confidence REAL,
        features TEXT NOT NULL,
        source VARCHAR(20),
        model_path TEXT,
        timestamp DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        model_path TEXT,
        accuracy REAL,
        precision REAL,
        recall REAL,
        f1 REAL,
        trained_at DATETIME,
        data_points INTEGER,
        holdout_points INTEGER
    );
    `

	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return err
	}
	if database != nil {
		database.Close()
	}
	database = conn
	return nil
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type PredictionRecord struct {
	ID         int64     `json:"id"`
	Label      int       `json:"label"`
	Confidence float64   `json:"confidence"`
	Features   []float64 `json:"features"`
	Source     string    `json:"source"`
	ModelPath  string    `json:"model_path"`
	Timestamp  time.Time `json:"timestamp"`
}

func SavePrediction(record PredictionRecord) error {
	if database == nil {
		return ErrNotInitialized
	}
	features, err := json.Marshal(record.Features)
	if err != nil {
		return err
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	_, err = database.Exec(`
        INSERT INTO predictions (
            predicted_label, confidence, features, source, model_path, timestamp
        ) VALUES (?, ?, ?, ?, ?, ?)
    `, record.Label, record.Confidence, string(features), record.Source, record.ModelPath, record.Timestamp)
	return err
}

// RecentPredictions returns up to limit predictions, newest first.
func RecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT id, predicted_label, confidence, features, source, model_path, timestamp
        FROM predictions
        ORDER BY timestamp DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		var features string
		var confidence sql.NullFloat64
		var source, modelPath sql.NullString
		if err := rows.Scan(&r.ID, &r.Label, &confidence, &features, &source, &modelPath, &r.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &r.Features); err != nil {
			return nil, err
		}
		r.Confidence = confidence.Float64
		r.Source = source.String
		r.ModelPath = modelPath.String
		records = append(records, r)
	}
	return records, rows.Err()
}

type TrainingLog struct {
	ModelName     string    `json:"model_name"`
	ModelPath     string    `json:"model_path"`
	Accuracy      float64   `json:"accuracy"`
	Precision     float64   `json:"precision"`
	Recall        float64   `json:"recall"`
	F1            float64   `json:"f1"`
	TrainedAt     time.Time `json:"trained_at"`
	DataPoints    int       `json:"data_points"`
	HoldoutPoints int       `json:"holdout_points"`
}

func SaveTrainingLog(entry TrainingLog) error {
	if database == nil {
		return ErrNotInitialized
	}
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	_, err := database.Exec(`
        INSERT INTO training_log (
            model_name, model_path, accuracy, precision, recall, f1,
            trained_at, data_points, holdout_points
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		entry.ModelName,
		entry.ModelPath,
		entry.Accuracy,
		entry.Precision,
		entry.Recall,
		entry.F1,
		entry.TrainedAt,
		entry.DataPoints,
		entry.HoldoutPoints,
	)
	return err
}

func LoadTrainingLog() ([]TrainingLog, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	rows, err := database.Query(`
        SELECT model_name, model_path, accuracy, precision, recall, f1,
               trained_at, data_points, holdout_points
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.ModelPath, &log.Accuracy, &log.Precision, &log.Recall, &log.F1,
			&log.TrainedAt, &log.DataPoints, &log.HoldoutPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
