package webhook

// Payload shapes mirror what the workflow server's entry nodes expect. Every
// payload carries the client-assigned generation_id so the server knows which
// row to write results into, and a job_type discriminator.

// AvatarPayload triggers an identity-forge image generation.
type AvatarPayload struct {
	GenerationID string `json:"generation_id"`
	JobType      string `json:"job_type"` // "generate"

	Gender      string `json:"gender"`
	Age         int    `json:"age"`
	Nationality string `json:"nationality"`
	BodyType    string `json:"body_type,omitempty"`
	Clothing    string `json:"clothing"`
	Role        string `json:"role"`
	ArtStyle    string `json:"art_style"`

	FaceImageURL    string `json:"face_image_url"`
	BodyRefImageURL string `json:"body_reference_image_url,omitempty"`
	CompositionURL  string `json:"composition_image_url,omitempty"`
	GrabBody        bool   `json:"grab_body_from_image"`
	GrabComposition bool   `json:"grab_composition"`

	InstantIDWeight float64 `json:"instantid_weight"`
	StyleToken      string  `json:"style_token"`
	UserPrompt      string  `json:"user_prompt"`
	Steps           int     `json:"steps,omitempty"`
	GuidanceScale   float64 `json:"guidance_scale,omitempty"`
	Seed            int64   `json:"seed"`
	Upscale         bool    `json:"upscale"`
	SafeMode        int     `json:"safe_mode"`
}

// VideoPayload triggers an image-to-video generation.
type VideoPayload struct {
	GenerationID string `json:"generation_id"`
	JobType      string `json:"job_type"` // "generate"

	ImageURL   string `json:"image_url"`
	Filename   string `json:"filename,omitempty"`
	TextPrompt string `json:"text_prompt"`
	SafeMode   bool   `json:"safe_mode"`

	Steps         int     `json:"steps,omitempty"`
	GuidanceScale float64 `json:"guidance_scale,omitempty"`
	Seed          int64   `json:"seed"`
}

// EditPayload triggers a refinement of an earlier result. The server writes
// the outcome to a row of its own choosing, which is why the monitor carries
// the deep-scan fallback.
type EditPayload struct {
	GenerationID string `json:"generation_id"`
	JobType      string `json:"job_type"` // "edit"

	SourceGenerationID string `json:"source_generation_id"`
	SourceImageURL     string `json:"source_image_url"`
	Instruction        string `json:"instruction"`
	Seed               int64  `json:"seed"`
	SafeMode           bool   `json:"safe_mode"`
}

const (
	JobTypeGenerate = "generate"
	JobTypeEdit     = "edit"
)
