// Package auth はパスワード認証、セッション管理、アイデンティティ変化の通知を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/cropview/internal/model"
	"github.com/hitoshi/cropview/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// セッション状態を管理する唯一のコンポーネントであり、
// サインイン/サインアウトのイベントを単一のハブからファンアウトする。
type Service struct {
	credRepo    repository.CredentialRepository
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	hub         *eventHub
}

// NewService はServiceを生成する。
func NewService(
	credRepo repository.CredentialRepository,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		credRepo:    credRepo,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		hub:         newEventHub(),
	}
}

// SignIn は資格情報を検証し、ロールを確認した上でセッションを発行する。
//
// 認証成功後にロールをサーバーサイドで再検証する: ユーザーレコードの
// ロールがexpectedRoleと一致しない場合、またはレコードが存在しない場合は、
// 発行済みのセッションを残さずACCESS_DENIEDで失敗する。
// 認証の成功だけでは認可として不十分。
func (s *Service) SignIn(ctx context.Context, email, password string, expectedRole model.Role) (*model.Session, error) {
	// 1. 資格情報の検証
	cred, err := s.credRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}
	if cred == nil {
		// 存在しないメールアドレスでもパスワード不一致と同じエラーを返す
		return nil, model.NewAuthFailedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		slog.Warn("sign-in failed: password mismatch", slog.String("email", email))
		return nil, model.NewAuthFailedError()
	}

	// 2. ユーザーレコードからロールを解決
	user, err := s.userRepo.FindByID(ctx, cred.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// 認証は通ったがユーザーレコードがない: セッションを発行せず拒否する
		slog.Warn("sign-in rejected: user record missing",
			slog.String("user_id", cred.UserID),
		)
		return nil, model.NewUserNotFoundError()
	}

	// 3. ロールの一致確認。不一致なら既存セッションも含めて破棄する。
	if user.Role != expectedRole {
		if err := s.sessionRepo.DeleteByUserID(ctx, user.ID); err != nil {
			slog.Error("failed to clear sessions after role mismatch",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		s.hub.publish(model.IdentityEvent{
			Type:       model.IdentitySignedOut,
			UserID:     user.ID,
			Role:       user.Role,
			OccurredAt: time.Now(),
		})
		slog.Warn("sign-in rejected: role mismatch",
			slog.String("user_id", user.ID),
			slog.String("role", string(user.Role)),
			slog.String("expected_role", string(expectedRole)),
		)
		return nil, model.NewAccessDeniedError(expectedRole)
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.hub.publish(model.IdentityEvent{
		Type:       model.IdentitySignedIn,
		UserID:     user.ID,
		Role:       user.Role,
		OccurredAt: time.Now(),
	})

	slog.Info("user signed in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return session, nil
}

// SignOut はセッションを破棄し、サインアウトイベントを通知する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if session != nil {
		s.hub.publish(model.IdentityEvent{
			Type:       model.IdentitySignedOut,
			UserID:     session.UserID,
			Role:       session.Role,
			OccurredAt: time.Now(),
		})
	}

	slog.Info("user signed out", slog.String("session_id", sessionID))
	return nil
}

// CurrentUser はセッションから現在のユーザーを取得する。
// ロール解決に失敗した場合はクラッシュさせず、farmer（非admin・非expert）に
// 縮退して警告ログを出す。利用者が認可不定の状態に置かれることはない。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		slog.Warn("role lookup failed, degrading to farmer",
			slog.String("user_id", session.UserID),
			slog.String("error", err.Error()),
		)
		return &model.User{ID: session.UserID, Role: model.RoleFarmer}, nil
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// Subscribe はアイデンティティ変化イベントの購読を開始する。
// 複数回呼び出してもバックエンドのリスナーが増えることはなく、
// 単一のハブからローカルの購読者へファンアウトされる。
// 返却される関数で購読を解除する。
func (s *Service) Subscribe() (<-chan model.IdentityEvent, func()) {
	return s.hub.subscribe()
}

// Close はイベントハブを停止し、全購読チャネルを閉じる。
// 複数回呼び出しても2回目以降は何もしない。
func (s *Service) Close() {
	s.hub.close()
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
