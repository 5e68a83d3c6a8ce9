// Package access はルート単位のアクセス制御ポリシーを提供する。
//
// ポリシーは純粋な判定関数であり、状態を持たない。セッション状態の管理は
// authパッケージ、HTTPレイヤーへの適用はmiddlewareパッケージの責務。
package access

import "github.com/hitoshi/cropview/internal/model"

// Area は保護対象のダッシュボード領域を表す。
type Area string

const (
	// AreaAdminDashboard は管理ダッシュボード（/dashboard配下）。
	AreaAdminDashboard Area = "admin-dashboard"
	// AreaExpertDashboard は専門家ダッシュボード（/expert配下）。
	AreaExpertDashboard Area = "expert-dashboard"
)

// 各領域のログイン画面へのリダイレクト先。
const (
	AdminLoginPath  = "/login"
	ExpertLoginPath = "/expert-login"
)

// DecisionKind はポリシー判定の種別。
type DecisionKind int

const (
	// DecisionAllow はアクセス許可。
	DecisionAllow DecisionKind = iota
	// DecisionPending はロール解決中。許可でも拒否でもなく、
	// 呼び出し側はローディング表示を維持する。未認可コンテンツの
	// 一瞬の表示と、ロール確定前の早すぎるリダイレクトの両方を防ぐ。
	DecisionPending
	// DecisionRedirect はアクセス拒否。RedirectToへ誘導する。
	DecisionRedirect
)

// Decision はポリシー判定の結果を表す。
type Decision struct {
	Kind       DecisionKind
	RedirectTo string // Kind == DecisionRedirect の場合のみ有効
}

// RequiredRole は指定領域への入場に必要なロールを返す。
func RequiredRole(area Area) model.Role {
	if area == AreaExpertDashboard {
		return model.RoleExpert
	}
	return model.RoleAdmin
}

// LoginPath は指定領域のログイン画面パスを返す。
func LoginPath(area Area) string {
	if area == AreaExpertDashboard {
		return ExpertLoginPath
	}
	return AdminLoginPath
}

// Evaluate は(認証状態, ロール, 要求領域)からアクセス可否を判定する。
//
//   - rolePending が真の間はDecisionPendingを返す。
//   - 未認証（authenticated == false）は領域のログイン画面へリダイレクト。
//   - 認証済みでもロールが領域の要求と一致しなければリダイレクト。
//     未知のロールはmodel.NormalizeRoleによりfarmerへ正規化されるため、
//     どの保護領域にも入れない。
//
// 副作用なし。同じ入力には常に同じ判定を返す。
func Evaluate(authenticated bool, role model.Role, area Area, rolePending bool) Decision {
	if rolePending {
		return Decision{Kind: DecisionPending}
	}

	if !authenticated {
		return Decision{Kind: DecisionRedirect, RedirectTo: LoginPath(area)}
	}

	if model.NormalizeRole(string(role)) != RequiredRole(area) {
		return Decision{Kind: DecisionRedirect, RedirectTo: LoginPath(area)}
	}

	return Decision{Kind: DecisionAllow}
}
