package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"atelier-backend/internal/models"
)

type Client struct {
	db *sql.DB
}

func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

const applicationColumns = `
	id, session_id, user_id, status, current_step,
	input_image_url, comment, form_factor, material, size,
	candidates, resolved_prompt, selected_variant, selected_image_url,
	recon_job_id, recon_status, model_urls,
	decorations, base_cost_cents, decoration_cost_cents, total_cost_cents,
	payment_status, engraving_text, error_message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	err := row.Scan(
		&app.ID, &app.SessionID, &app.UserID, &app.Status, &app.CurrentStep,
		&app.InputImageURL, &app.Comment, &app.FormFactor, &app.Material, &app.Size,
		&app.Candidates, &app.ResolvedPrompt, &app.SelectedVariant, &app.SelectedImageURL,
		&app.ReconJobID, &app.ReconStatus, &app.ModelURLs,
		&app.Decorations, &app.BaseCostCents, &app.DecorationCostCents, &app.TotalCostCents,
		&app.PaymentStatus, &app.EngravingText, &app.ErrorMessage, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *Client) CreateApplication(app *models.Application) (*models.Application, error) {
	row := c.db.QueryRow(`
		INSERT INTO applications
			(id, session_id, status, current_step, input_image_url, comment, form_factor, material, size, recon_status, decorations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '[]')
		RETURNING`+applicationColumns+`
	`, app.ID, app.SessionID, models.StatusDraft, app.CurrentStep,
		app.InputImageURL, app.Comment, app.FormFactor, app.Material, app.Size, models.ReconNone)

	created, err := scanApplication(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return created, nil
}

func (c *Client) GetApplication(id uuid.UUID) (*models.Application, error) {
	row := c.db.QueryRow(`
		SELECT`+applicationColumns+`
		FROM applications
		WHERE id = $1
	`, id)

	app, err := scanApplication(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// UpdateApplicationConfig persists the step index and the cumulative
// configuration after a sequencer transition.
func (c *Client) UpdateApplicationConfig(id uuid.UUID, step int, formFactor, material, size, comment, engraving sql.NullString, baseCents, totalCents int64) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET current_step = $1,
			form_factor = COALESCE($2, form_factor),
			material = COALESCE($3, material),
			size = COALESCE($4, size),
			comment = COALESCE($5, comment),
			engraving_text = COALESCE($6, engraving_text),
			base_cost_cents = $7,
			total_cost_cents = $8,
			updated_at = NOW()
		WHERE id = $9
	`, step, formFactor, material, size, comment, engraving, baseCents, totalCents, id)
	return err
}

func (c *Client) UpdateApplicationStep(id uuid.UUID, step int) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET current_step = $1, updated_at = NOW()
		WHERE id = $2
	`, step, id)
	return err
}

func (c *Client) SetApplicationStatus(id uuid.UUID, status string) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	return err
}

// BeginGeneration flips the application into generating only if no other
// generation is in flight. Returns false when the status gate rejects the
// transition, which is the single-flight guarantee.
func (c *Client) BeginGeneration(id uuid.UUID, regenerate bool) (bool, error) {
	allowed := []string{models.StatusDraft}
	if regenerate {
		allowed = append(allowed, models.StatusGenerated, models.StatusVariantsReady, models.StatusSelected)
	}

	res, err := c.db.Exec(`
		UPDATE applications
		SET status = $1, error_message = NULL, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`, models.StatusGenerating, id, pq.Array(allowed))
	if err != nil {
		return false, fmt.Errorf("failed to begin generation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearGenerationOutputs discards candidates, selection, decorations and
// 3D state before a regeneration run.
func (c *Client) ClearGenerationOutputs(id uuid.UUID) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET candidates = NULL, resolved_prompt = NULL,
			selected_variant = NULL, selected_image_url = NULL,
			recon_job_id = NULL, recon_status = $1, model_urls = NULL,
			decorations = '[]', decoration_cost_cents = 0,
			total_cost_cents = base_cost_cents,
			updated_at = NOW()
		WHERE id = $2
	`, models.ReconNone, id)
	return err
}

func (c *Client) SaveGenerationResult(id uuid.UUID, candidateURLs []string, resolvedPrompt string, step int) error {
	candidates, err := json.Marshal(candidateURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}

	_, err = c.db.Exec(`
		UPDATE applications
		SET status = $1, candidates = $2, resolved_prompt = $3,
			current_step = $4, error_message = NULL, updated_at = NOW()
		WHERE id = $5
	`, models.StatusGenerated, candidates, resolvedPrompt, step, id)
	return err
}

// SaveGenerationFailure reverts the application to draft so the user can
// retry immediately.
func (c *Client) SaveGenerationFailure(id uuid.UUID, errorMsg string) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`, models.StatusDraft, errorMsg, id)
	return err
}

// SetSelectedVariant records the single selected variant. A previous
// selection and its 3D job are replaced, not merged.
func (c *Client) SetSelectedVariant(id uuid.UUID, variant int, imageURL string) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET status = $1, selected_variant = $2, selected_image_url = $3,
			recon_job_id = NULL, recon_status = $4, model_urls = NULL,
			updated_at = NOW()
		WHERE id = $5
	`, models.StatusSelected, variant, imageURL, models.ReconNone, id)
	return err
}

func (c *Client) SetReconJob(id uuid.UUID, jobID string) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET recon_job_id = $1, recon_status = $2, model_urls = NULL, updated_at = NOW()
		WHERE id = $3
	`, jobID, models.ReconPending, id)
	return err
}

func (c *Client) SetReconPending(id uuid.UUID) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET recon_status = $1, updated_at = NOW()
		WHERE id = $2
	`, models.ReconPending, id)
	return err
}

func (c *Client) SetReconCompleted(id uuid.UUID, modelURLs []string) error {
	urls, err := json.Marshal(modelURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal model urls: %w", err)
	}
	_, err = c.db.Exec(`
		UPDATE applications
		SET recon_status = $1, model_urls = $2, updated_at = NOW()
		WHERE id = $3
	`, models.ReconCompleted, urls, id)
	return err
}

func (c *Client) SetReconFailed(id uuid.UUID) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET recon_status = $1, updated_at = NOW()
		WHERE id = $2
	`, models.ReconFailed, id)
	return err
}

func (c *Client) UpdateDecorations(id uuid.UUID, decorations json.RawMessage, decorationCents, totalCents int64) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET decorations = $1, decoration_cost_cents = $2, total_cost_cents = $3, updated_at = NOW()
		WHERE id = $4
	`, decorations, decorationCents, totalCents, id)
	return err
}

func (c *Client) SetInputImageURL(id uuid.UUID, url string) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET input_image_url = $1, updated_at = NOW()
		WHERE id = $2
	`, url, id)
	return err
}

func (c *Client) SetPaymentStatus(id uuid.UUID, appStatus, paymentStatus string) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3
	`, appStatus, paymentStatus, id)
	return err
}

func (c *Client) BindUserToApplication(id, userID uuid.UUID) error {
	_, err := c.db.Exec(`
		UPDATE applications
		SET user_id = $1, updated_at = NOW()
		WHERE id = $2
	`, userID, id)
	return err
}

// UpsertUser returns the existing user for an email or creates one. The
// name is only written on first creation.
func (c *Client) UpsertUser(email, name string) (*models.User, error) {
	var user models.User
	err := c.db.QueryRow(`
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, name, created_at
	`, uuid.New(), email, name).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}

func (c *Client) CreateOrder(order *models.Order) (*models.Order, error) {
	err := c.db.QueryRow(`
		INSERT INTO orders (id, application_id, user_id, contact, material, size, decorations, total_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, order.ID, order.ApplicationID, order.UserID, order.Contact,
		order.Material, order.Size, order.Decorations, order.TotalCents, order.Status,
	).Scan(&order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (c *Client) GetOrderByApplication(applicationID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := c.db.QueryRow(`
		SELECT id, application_id, user_id, contact, material, size, decorations, total_cents, status, created_at
		FROM orders
		WHERE application_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, applicationID).Scan(
		&order.ID, &order.ApplicationID, &order.UserID, &order.Contact,
		&order.Material, &order.Size, &order.Decorations, &order.TotalCents,
		&order.Status, &order.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}
