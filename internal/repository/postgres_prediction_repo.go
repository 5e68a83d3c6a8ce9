package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/cropview/internal/model"
)

// PostgresPredictionRepo はPostgreSQLを使用した予測リポジトリ。
type PostgresPredictionRepo struct {
	db *sql.DB
}

// NewPostgresPredictionRepo はPostgresPredictionRepoを生成する。
func NewPostgresPredictionRepo(db *sql.DB) *PostgresPredictionRepo {
	return &PostgresPredictionRepo{db: db}
}

// ListAll は全予測のスナップショットをタイムスタンプ降順で返す。
// crop_type・result・confidenceの欠損はこの境界でデフォルト値に正規化する。
func (r *PostgresPredictionRepo) ListAll(ctx context.Context) ([]*model.Prediction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id,
		        COALESCE(NULLIF(crop_type, ''), $1),
		        COALESCE(confidence, 0),
		        COALESCE(NULLIF(result, ''), $2),
		        timestamp,
		        COALESCE(expert_comment, '')
		 FROM user_prediction
		 ORDER BY timestamp DESC`,
		model.DefaultCropType, model.DefaultResult,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*model.Prediction
	for rows.Next() {
		p := &model.Prediction{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.CropType, &p.Confidence, &p.Result, &p.Timestamp, &p.ExpertComment); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}

	return predictions, nil
}

// FindByID は指定IDの予測を取得する。見つからない場合はnilを返す。
func (r *PostgresPredictionRepo) FindByID(ctx context.Context, id string) (*model.Prediction, error) {
	p := &model.Prediction{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id,
		        COALESCE(NULLIF(crop_type, ''), $2),
		        COALESCE(confidence, 0),
		        COALESCE(NULLIF(result, ''), $3),
		        timestamp,
		        COALESCE(expert_comment, '')
		 FROM user_prediction WHERE id = $1`,
		id, model.DefaultCropType, model.DefaultResult,
	).Scan(&p.ID, &p.UserID, &p.CropType, &p.Confidence, &p.Result, &p.Timestamp, &p.ExpertComment)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find prediction by ID: %w", err)
	}

	return p, nil
}

// UpdateExpertComment は指定予測のexpert_commentのみを更新する。
// 単一カラムの部分更新のため、他カラムへの同時編集を上書きしない。
// コメントは空白をトリムした上で保存する。空の場合はバリデーションエラー。
func (r *PostgresPredictionRepo) UpdateExpertComment(ctx context.Context, predictionID, comment string) error {
	trimmed := strings.TrimSpace(comment)
	if trimmed == "" {
		return model.NewEmptyCommentError()
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE user_prediction SET expert_comment = $2 WHERE id = $1`,
		predictionID, trimmed,
	)
	if err != nil {
		return fmt.Errorf("failed to update expert comment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewPredictionNotFoundError(predictionID)
	}

	return nil
}

// compile-time interface check
var _ PredictionRepository = (*PostgresPredictionRepo)(nil)
