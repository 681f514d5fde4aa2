package models

type CreateApplicationRequest struct {
	// Inline-encoded input image (base64). Optional; a comment-only
	// application is allowed for text-only generation.
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageMime   string `json:"image_mime,omitempty"`
	Comment     string `json:"comment,omitempty"`
	FormFactor  string `json:"form_factor,omitempty"`
	Material    string `json:"material,omitempty"`
	Size        string `json:"size,omitempty"`
}

type GenerateRequest struct {
	// Regenerate discards current candidates, selection and decorations
	// and starts a fresh generation.
	Regenerate bool `json:"regenerate,omitempty"`
}

type AdvanceRequest struct {
	// Direction is "forward" (default) or "back".
	Direction string `json:"direction,omitempty"`
	// Target step name for forward transitions.
	Step string `json:"step,omitempty"`
	// Config patch persisted together with the step change.
	FormFactor    string `json:"form_factor,omitempty"`
	Material      string `json:"material,omitempty"`
	Size          string `json:"size,omitempty"`
	Comment       string `json:"comment,omitempty"`
	EngravingText string `json:"engraving_text,omitempty"`
}

type SelectVariantRequest struct {
	Variant int `json:"variant"`
}

type PlaceDecorationRequest struct {
	// Pointer position in pixels on the client preview.
	PointerX float64 `json:"pointer_x"`
	PointerY float64 `json:"pointer_y"`
	// Preview bounds in pixels.
	BoundsWidth  float64 `json:"bounds_width"`
	BoundsHeight float64 `json:"bounds_height"`
	// Decoration type id resolved against the settings catalog.
	DecorationType string `json:"decoration_type"`
}

type RequestCodeRequest struct {
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type SubmitOrderRequest struct {
	Contact ContactInfo `json:"contact"`
}

type CreatePaymentRequest struct {
	Contact ContactInfo `json:"contact"`
}
