// Package review は専門家コメント付与の状態機械を提供する。
//
// 1つのWorkflowは1件の予測レコードに対するレビューセッションを表す。
// 状態遷移は Closed → Viewing → Editing → Saving → Closed で、
// 保存失敗時はドラフトを保持したままEditingへ戻る（再保存で再試行可能）。
// どの状態からもCancelでClosedへ遷移でき、その場合ドラフトは破棄される。
//
// Workflowは単一ゴルーチンからの利用を想定しており、内部で排他制御を行わない。
// 同一予測への並行レビューはlast-write-winsとなる（リポジトリ層の単一カラム
// UPDATEの性質による）。
package review

import (
	"context"

	"github.com/hitoshi/cropview/internal/model"
)

// State はレビューセッションの状態。
type State string

const (
	// StateClosed はレビュー対象が選択されていない初期状態。
	StateClosed State = "closed"
	// StateViewing は予測を選択し既存コメントを閲覧している状態。
	StateViewing State = "viewing"
	// StateEditing はドラフトを編集中の状態。保存失敗後もこの状態に戻る。
	StateEditing State = "editing"
	// StateSaving はリポジトリ書き込みが進行中の状態。
	StateSaving State = "saving"
)

// CommentWriter はコメントの永続化操作。repository.PredictionRepositoryが満たす。
type CommentWriter interface {
	UpdateExpertComment(ctx context.Context, id string, comment string) error
}

// Sanitizer はドラフトの保存前サニタイズ。security.CommentSanitizerServiceが満たす。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Workflow は1件の予測に対するレビューセッションの状態機械。
type Workflow struct {
	writer    CommentWriter
	sanitizer Sanitizer

	state     State
	selected  *model.Prediction
	draftText string
}

// NewWorkflow はClosed状態のWorkflowを生成する。
func NewWorkflow(writer CommentWriter, sanitizer Sanitizer) *Workflow {
	return &Workflow{
		writer:    writer,
		sanitizer: sanitizer,
		state:     StateClosed,
	}
}

// State は現在の状態を返す。
func (w *Workflow) State() State {
	return w.state
}

// Selected は現在選択中の予測を返す。Closed状態ではnil。
func (w *Workflow) Selected() *model.Prediction {
	return w.selected
}

// Draft は現在のドラフトテキストを返す。
func (w *Workflow) Draft() string {
	return w.draftText
}

// Open は予測を選択してViewing状態へ遷移する。
// ドラフトは既存コメントで初期化される（未レビューなら空）。
// 別の予測を閲覧中に呼ばれた場合、前のセッションは暗黙にキャンセルされる。
func (w *Workflow) Open(p *model.Prediction) {
	w.selected = p
	w.draftText = p.ExpertComment
	w.state = StateViewing
}

// SetDraft はドラフトを更新しEditing状態へ遷移する。
// Closed状態では何もしない。
func (w *Workflow) SetDraft(text string) {
	if w.state == StateClosed {
		return
	}
	w.draftText = text
	w.state = StateEditing
}

// Save はドラフトをサニタイズして永続化する。
//
// トリム後のドラフトが空の場合は書き込みを発行せず、Editing状態のまま
// ValidationErrorを返す。書き込み成功時は選択中レコードのexpert_commentを
// メモリ上でも更新してClosedへ遷移する（再取得なしでレビュー済み表示になる）。
// 書き込み失敗時はドラフトを保持したままEditingへ戻り、エラーを返す。
func (w *Workflow) Save(ctx context.Context) error {
	if w.state != StateViewing && w.state != StateEditing {
		return model.NewNoSelectionError()
	}

	sanitized := w.sanitizer.Sanitize(w.draftText)
	if sanitized == "" {
		w.state = StateEditing
		return model.NewEmptyCommentError()
	}

	w.state = StateSaving
	if err := w.writer.UpdateExpertComment(ctx, w.selected.ID, sanitized); err != nil {
		w.state = StateEditing
		return err
	}

	w.selected.ExpertComment = sanitized
	w.close()
	return nil
}

// Cancel はどの状態からでもClosedへ遷移し、ドラフトを破棄する。
// 永続化は行われない。
func (w *Workflow) Cancel() {
	w.close()
}

func (w *Workflow) close() {
	w.state = StateClosed
	w.selected = nil
	w.draftText = ""
}
