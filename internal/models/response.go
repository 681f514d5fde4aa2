package models

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type ApplicationResponse struct {
	ID          string `json:"application_id"`
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id,omitempty"`
	Status      string `json:"status"`
	CurrentStep int    `json:"current_step"`
	StepName    string `json:"step_name"`

	InputImageURL string `json:"input_image_url,omitempty"`
	Comment       string `json:"comment,omitempty"`
	FormFactor    string `json:"form_factor,omitempty"`
	Material      string `json:"material,omitempty"`
	Size          string `json:"size,omitempty"`

	Candidates       []string `json:"candidates,omitempty"`
	ResolvedPrompt   string   `json:"resolved_prompt,omitempty"`
	SelectedVariant  *int     `json:"selected_variant,omitempty"`
	SelectedImageURL string   `json:"selected_image_url,omitempty"`

	// Presentation-only estimate while status is generating; snaps to 100
	// on completion. Never used for completion detection.
	GenerationProgress int `json:"generation_progress"`

	ReconJobID  string   `json:"recon_job_id,omitempty"`
	ReconStatus string   `json:"recon_status"`
	ModelURLs   []string `json:"model_urls,omitempty"`

	Decorations []PlacementResponse `json:"decorations"`

	BaseCostCents       int64  `json:"base_cost_cents"`
	DecorationCostCents int64  `json:"decoration_cost_cents"`
	TotalCostCents      int64  `json:"total_cost_cents"`
	PaymentStatus       string `json:"payment_status,omitempty"`

	EngravingText string `json:"engraving_text,omitempty"`

	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PlacementResponse struct {
	ID             string  `json:"id"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	DecorationType string  `json:"decoration_type"`
}

type GenerateResponse struct {
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
}

type SelectVariantResponse struct {
	ApplicationID    string `json:"application_id"`
	Status           string `json:"status"`
	SelectedVariant  int    `json:"selected_variant"`
	SelectedImageURL string `json:"selected_image_url"`
	ReconJobID       string `json:"recon_job_id,omitempty"`
	ReconStatus      string `json:"recon_status"`
}

type ModelStatusResponse struct {
	ApplicationID string   `json:"application_id"`
	ReconJobID    string   `json:"recon_job_id,omitempty"`
	ReconStatus   string   `json:"recon_status"`
	ModelURLs     []string `json:"model_urls,omitempty"`
	// Presentation-only estimate scaled to the multi-minute build time.
	Progress int `json:"progress"`
}

type RequestCodeResponse struct {
	Status string `json:"status"`
	// Verified is true only for the test sentinel short-circuit.
	Verified bool   `json:"verified,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Token    string `json:"token,omitempty"`
}

type VerifyCodeResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type OrderConfirmationResponse struct {
	OrderID       string    `json:"order_id"`
	ApplicationID string    `json:"application_id"`
	Status        string    `json:"status"`
	TotalCents    int64     `json:"total_cents"`
	CreatedAt     time.Time `json:"created_at"`
}

type PaymentResponse struct {
	ApplicationID string `json:"application_id"`
	RedirectURL   string `json:"redirect_url"`
	AmountCents   int64  `json:"amount_cents"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
