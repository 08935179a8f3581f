package submit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/domain"
	"github.com/veoreg/infinity-studio/internal/monitor"
	"github.com/veoreg/infinity-studio/internal/webhook"
)

// Submitter runs the submission pipeline: validate, settle balance, insert
// the row, persist the session tuple, fire the webhook, start the monitor.
// Validation happens before any side effect; once the row exists the job is
// considered live even if the webhook call misbehaves.
type Submitter struct {
	store    domain.GenerationStore
	balances domain.BalanceStore
	sessions domain.SessionStore
	hooks    *webhook.Client
	tracker  *monitor.Tracker
	quota    int
	logger   zerolog.Logger
}

func New(store domain.GenerationStore, balances domain.BalanceStore, sessions domain.SessionStore, hooks *webhook.Client, tracker *monitor.Tracker, guestDailyQuota int, logger zerolog.Logger) *Submitter {
	return &Submitter{
		store:    store,
		balances: balances,
		sessions: sessions,
		hooks:    hooks,
		tracker:  tracker,
		quota:    guestDailyQuota,
		logger:   logger.With().Str("component", "submit").Logger(),
	}
}

// Result reports a successful submission. Warning carries a non-fatal webhook
// delivery problem; the monitor is running either way.
type Result struct {
	Job     domain.GenerationJob
	Monitor *monitor.Monitor
	Unit    domain.BalanceUnit
	Warning error
}

// AvatarRequest carries the avatar-forge parameters.
type AvatarRequest struct {
	Gender      string `json:"gender"`
	Age         int    `json:"age"`
	Nationality string `json:"nationality"`
	BodyType    string `json:"body_type,omitempty"`
	Clothing    string `json:"clothing"`
	Role        string `json:"role"`
	ArtStyle    string `json:"art_style"`

	FaceImageURL    string `json:"face_image_url"`
	BodyRefImageURL string `json:"body_ref_image_url,omitempty"`
	UseBodyRef      bool   `json:"use_body_ref,omitempty"`
	CompositionURL  string `json:"composition_url,omitempty"`
	UseComposition  bool   `json:"use_composition,omitempty"`

	InstantIDWeight float64 `json:"instantid_weight,omitempty"`
	UserPrompt      string  `json:"user_prompt,omitempty"`
	Steps           int     `json:"steps,omitempty"`
	GuidanceScale   float64 `json:"guidance_scale,omitempty"`
	Seed            int64   `json:"seed"`
	Upscale         bool    `json:"upscale,omitempty"`
	SafeMode        bool    `json:"safe_mode"`
}

// VideoRequest carries the image-to-video parameters.
type VideoRequest struct {
	ImageURL      string  `json:"image_url"`
	Filename      string  `json:"filename,omitempty"`
	TextPrompt    string  `json:"text_prompt"`
	SafeMode      bool    `json:"safe_mode"`
	Steps         int     `json:"steps,omitempty"`
	GuidanceScale float64 `json:"guidance_scale,omitempty"`
	Seed          int64   `json:"seed"`
}

// EditRequest refines an earlier result identified by its generation id.
type EditRequest struct {
	SourceJobID string `json:"source_generation_id"`
	Instruction string `json:"instruction"`
	Seed        int64  `json:"seed"`
	SafeMode    bool   `json:"safe_mode"`
}

// premiumArtStyles require an authenticated account, as does disabling safe
// mode.
var premiumArtStyles = map[string]bool{
	"cinematic":    true,
	"editorial":    true,
	"neon_noir":    true,
	"oil_painting": true,
}

func (s *Submitter) Avatar(ctx context.Context, userID string, req AvatarRequest) (*Result, error) {
	if req.FaceImageURL == "" {
		return nil, fmt.Errorf("%w: face image is required", domain.ErrValidation)
	}
	if req.UseBodyRef && req.BodyRefImageURL == "" {
		return nil, fmt.Errorf("%w: body reference enabled but no image provided", domain.ErrValidation)
	}
	if req.UseComposition && req.CompositionURL == "" {
		return nil, fmt.Errorf("%w: composition reference enabled but no image provided", domain.ErrValidation)
	}
	if userID == "" && (premiumArtStyles[req.ArtStyle] || !req.SafeMode) {
		return nil, domain.ErrPremiumRequired
	}

	payload := webhook.AvatarPayload{
		JobType:         webhook.JobTypeGenerate,
		Gender:          req.Gender,
		Age:             req.Age,
		Nationality:     req.Nationality,
		BodyType:        req.BodyType,
		Clothing:        req.Clothing,
		Role:            req.Role,
		ArtStyle:        req.ArtStyle,
		FaceImageURL:    req.FaceImageURL,
		InstantIDWeight: req.InstantIDWeight,
		StyleToken:      req.ArtStyle,
		UserPrompt:      req.UserPrompt,
		Steps:           req.Steps,
		GuidanceScale:   req.GuidanceScale,
		Seed:            resolveSeed(req.Seed),
		Upscale:         req.Upscale,
		SafeMode:        boolToInt(req.SafeMode),
	}
	if req.UseBodyRef {
		payload.BodyRefImageURL = req.BodyRefImageURL
		payload.GrabBody = true
	}
	if req.UseComposition {
		payload.CompositionURL = req.CompositionURL
		payload.GrabComposition = true
	}

	safe := req.SafeMode
	return s.submit(ctx, userID, submission{
		kind:     domain.JobKindAvatar,
		prompt:   req.UserPrompt,
		imageURL: req.FaceImageURL,
		metadata: domain.JobMetadata{SafeMode: &safe},
		finalize: func(id string) any {
			payload.GenerationID = id
			return payload
		},
	})
}

func (s *Submitter) Video(ctx context.Context, userID string, req VideoRequest) (*Result, error) {
	if req.ImageURL == "" {
		return nil, fmt.Errorf("%w: source image is required", domain.ErrValidation)
	}
	if req.TextPrompt == "" {
		return nil, fmt.Errorf("%w: text prompt is required", domain.ErrValidation)
	}

	payload := webhook.VideoPayload{
		JobType:       webhook.JobTypeGenerate,
		ImageURL:      req.ImageURL,
		Filename:      req.Filename,
		TextPrompt:    req.TextPrompt,
		SafeMode:      req.SafeMode,
		Steps:         req.Steps,
		GuidanceScale: req.GuidanceScale,
		Seed:          resolveSeed(req.Seed),
	}

	safe := req.SafeMode
	return s.submit(ctx, userID, submission{
		kind:     domain.JobKindVideo,
		prompt:   req.TextPrompt,
		imageURL: req.ImageURL,
		metadata: domain.JobMetadata{SafeMode: &safe},
		finalize: func(id string) any {
			payload.GenerationID = id
			return payload
		},
	})
}

func (s *Submitter) Edit(ctx context.Context, userID string, req EditRequest) (*Result, error) {
	if req.SourceJobID == "" {
		return nil, fmt.Errorf("%w: source generation id is required", domain.ErrValidation)
	}
	if req.Instruction == "" {
		return nil, fmt.Errorf("%w: edit instruction is required", domain.ErrValidation)
	}
	source, err := s.store.GetByID(ctx, req.SourceJobID)
	if err != nil {
		return nil, fmt.Errorf("load source generation: %w", err)
	}
	beforeURL := source.FinalURL(true)
	if beforeURL == "" {
		return nil, fmt.Errorf("%w: source generation has no result to edit", domain.ErrValidation)
	}

	payload := webhook.EditPayload{
		JobType:            webhook.JobTypeEdit,
		SourceGenerationID: req.SourceJobID,
		SourceImageURL:     beforeURL,
		Instruction:        req.Instruction,
		Seed:               resolveSeed(req.Seed),
		SafeMode:           req.SafeMode,
	}

	return s.submit(ctx, userID, submission{
		kind:      domain.JobKindEdit,
		prompt:    req.Instruction,
		imageURL:  beforeURL,
		beforeURL: beforeURL,
		metadata:  domain.JobMetadata{SourceGenerationID: req.SourceJobID},
		finalize: func(id string) any {
			payload.GenerationID = id
			return payload
		},
	})
}

// submission is the kind-independent remainder of a validated request.
type submission struct {
	kind      domain.JobKind
	prompt    string
	imageURL  string
	beforeURL string
	metadata  domain.JobMetadata
	finalize  func(id string) any
}

func (s *Submitter) submit(ctx context.Context, userID string, sub submission) (*Result, error) {
	unit := domain.BalanceUnitNone
	owner := domain.Owner{UserID: userID}

	if userID == "" {
		guestID, err := s.sessions.GuestID()
		if err != nil {
			return nil, fmt.Errorf("resolve guest id: %w", err)
		}
		owner.GuestID = guestID
		sub.metadata.GuestID = guestID
		if err := s.checkGuestQuota(ctx, owner); err != nil {
			return nil, err
		}
	} else {
		user, err := s.balances.GetUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		if !user.IsAdmin() {
			if !user.HasBalance() {
				return nil, domain.ErrInsufficientBalance
			}
			// Deducted before the insert and never refunded: a failed
			// generation still consumed server capacity.
			unit, err = s.balances.DeductUnit(ctx, userID)
			if err != nil {
				return nil, err
			}
		}
	}

	now := time.Now()
	job := domain.GenerationJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      sub.kind,
		RawStatus: string(domain.JobStatusProcessing),
		Prompt:    sub.prompt,
		ImageURL:  sub.imageURL,
		Metadata:  sub.metadata,
		CreatedAt: now,
	}
	if err := s.store.Insert(ctx, &job); err != nil {
		return nil, fmt.Errorf("insert generation: %w", err)
	}

	if err := s.sessions.SaveActive(&domain.ActiveSession{
		JobID:     job.ID,
		Kind:      sub.kind,
		ImageURL:  sub.imageURL,
		Prompt:    sub.prompt,
		BeforeURL: sub.beforeURL,
		StartedAt: now,
	}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("session save failed, resume unavailable")
	}

	trigger, err := s.hooks.Trigger(ctx, sub.kind, sub.finalize(job.ID))
	if err != nil {
		return nil, err
	}

	mon, err := s.tracker.Start(ctx, monitor.Job{
		ID:        job.ID,
		Kind:      sub.kind,
		StartedAt: now,
		BeforeURL: sub.beforeURL,
	})
	if err != nil {
		return nil, fmt.Errorf("start monitor: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("kind", string(sub.kind)).
		Str("unit", string(unit)).
		Bool("guest", userID == "").
		Msg("generation submitted")

	return &Result{Job: job, Monitor: mon, Unit: unit, Warning: trigger.Warning}, nil
}

// Cancel aborts the job: notifies the workflow server and resolves the local
// monitor. Safe to call for a job this process is not monitoring; the session
// file is cleared either way.
func (s *Submitter) Cancel(jobID string) {
	s.hooks.CancelGeneration(jobID)
	if m := s.tracker.Active(); m != nil && m.Job().ID == jobID {
		m.Cancel()
		return
	}
	if err := s.sessions.ClearActive(); err != nil {
		s.logger.Warn().Err(err).Msg("session clear failed")
	}
}

func (s *Submitter) checkGuestQuota(ctx context.Context, owner domain.Owner) error {
	if s.quota <= 0 {
		return nil
	}
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	count, err := s.store.CountSince(ctx, owner, dayStart)
	if err != nil {
		return fmt.Errorf("count guest generations: %w", err)
	}
	if count >= s.quota {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// resolveSeed maps the -1 sentinel to a fresh random seed.
func resolveSeed(seed int64) int64 {
	if seed >= 0 {
		return seed
	}
	return rand.Int64N(1 << 31)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
