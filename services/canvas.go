package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

// maxCourseFanout bounds concurrent per-course requests against Canvas.
const maxCourseFanout = 4

// CanvasUser is the subset of /users/self we keep.
type CanvasUser struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LoginID      string `json:"login_id,omitempty"`
	PrimaryEmail string `json:"primary_email,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
}

// CanvasCourse is a course the user is enrolled in.
type CanvasCourse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
}

// CanvasSubmission is the current user's submission state for an assignment.
type CanvasSubmission struct {
	SubmittedAt   *time.Time `json:"submitted_at"`
	WorkflowState string     `json:"workflow_state"`
	Score         *float64   `json:"score"`
	Grade         *string    `json:"grade"`
}

// CanvasAssignment is an assignment annotated with its course.
type CanvasAssignment struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	DueAt          *time.Time        `json:"due_at"`
	PointsPossible *float64          `json:"points_possible"`
	HTMLURL        string            `json:"html_url"`
	Submission     *CanvasSubmission `json:"submission,omitempty"`
	CourseID       int64             `json:"courseId"`
	CourseName     string            `json:"courseName"`
}

// CanvasAnnouncement is a course announcement.
type CanvasAnnouncement struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	PostedAt    *time.Time `json:"posted_at"`
	ContextCode string     `json:"context_code"`
	HTMLURL     string     `json:"html_url"`
}

// CanvasAPI is the read surface of Canvas used by the service.
type CanvasAPI interface {
	CurrentUser(ctx context.Context) (*CanvasUser, error)
	Courses(ctx context.Context) ([]CanvasCourse, error)
	CourseAssignments(ctx context.Context, courseID int64) ([]CanvasAssignment, error)
	AllAssignments(ctx context.Context) ([]CanvasAssignment, error)
	Announcements(ctx context.Context, courseIDs []int64) ([]CanvasAnnouncement, error)
}

// CanvasFactory builds a client for a Canvas instance and access token.
type CanvasFactory func(ctx context.Context, baseURL, accessToken string) CanvasAPI

// CanvasClient talks to the Canvas REST API with a bearer token.
type CanvasClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewCanvasClient returns a client whose requests carry accessToken.
func NewCanvasClient(ctx context.Context, baseURL, accessToken string, logger *zap.Logger) *CanvasClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = 20 * time.Second
	return &CanvasClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    hc,
		logger:  logger,
	}
}

// NewCanvasFactory returns a CanvasFactory producing real clients.
func NewCanvasFactory(logger *zap.Logger) CanvasFactory {
	return func(ctx context.Context, baseURL, accessToken string) CanvasAPI {
		return NewCanvasClient(ctx, baseURL, accessToken, logger)
	}
}

// CurrentUser fetches the token owner's profile.
func (c *CanvasClient) CurrentUser(ctx context.Context) (*CanvasUser, error) {
	var u CanvasUser
	if err := c.get(ctx, "/users/self", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Courses lists the user's student enrollments.
func (c *CanvasClient) Courses(ctx context.Context) ([]CanvasCourse, error) {
	q := url.Values{}
	q.Set("enrollment_type", "student")
	q.Set("enrollment_role", "StudentEnrollment")
	q.Add("include[]", "term")
	q.Set("per_page", "100")
	var courses []CanvasCourse
	if err := c.get(ctx, "/courses", q, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// CourseAssignments lists upcoming assignments of one course with the user's submission.
func (c *CanvasClient) CourseAssignments(ctx context.Context, courseID int64) ([]CanvasAssignment, error) {
	q := url.Values{}
	q.Add("include[]", "submission")
	q.Add("include[]", "overrides")
	q.Set("bucket", "upcoming")
	q.Set("per_page", "100")
	var out []CanvasAssignment
	if err := c.get(ctx, "/courses/"+strconv.FormatInt(courseID, 10)+"/assignments", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AllAssignments fetches assignments of every course concurrently. A failing course is
// logged and skipped; only the course listing itself is fatal.
func (c *CanvasClient) AllAssignments(ctx context.Context) ([]CanvasAssignment, error) {
	courses, err := c.Courses(ctx)
	if err != nil {
		return nil, err
	}

	perCourse := make([][]CanvasAssignment, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCourseFanout)
	for i, course := range courses {
		i, course := i, course
		g.Go(func() error {
			items, err := c.CourseAssignments(gctx, course.ID)
			if err != nil {
				c.logger.Warn("canvas course assignments failed",
					zap.Int64("course_id", course.ID),
					zap.Error(err))
				return nil
			}
			for j := range items {
				items[j].CourseID = course.ID
				items[j].CourseName = course.Name
			}
			perCourse[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []CanvasAssignment
	for _, items := range perCourse {
		all = append(all, items...)
	}
	return all, nil
}

// Announcements lists announcements for the given courses.
func (c *CanvasClient) Announcements(ctx context.Context, courseIDs []int64) ([]CanvasAnnouncement, error) {
	if len(courseIDs) == 0 {
		return []CanvasAnnouncement{}, nil
	}
	q := url.Values{}
	for _, id := range courseIDs {
		q.Add("context_codes[]", "course_"+strconv.FormatInt(id, 10))
	}
	var out []CanvasAnnouncement
	if err := c.get(ctx, "/announcements", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CanvasClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("canvas api error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("canvas api error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode canvas response: %w", err)
	}
	return nil
}

// CanvasOAuth runs the authorization-code flow against a Canvas instance.
type CanvasOAuth struct {
	cfg     *oauth2.Config
	baseURL string
}

// NewCanvasOAuth configures the Canvas developer key. Returns nil when the key is not set.
func NewCanvasOAuth(baseURL, clientID, clientSecret, redirectURI string) *CanvasOAuth {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	base := strings.TrimRight(baseURL, "/")
	return &CanvasOAuth{
		baseURL: base,
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/login/oauth2/auth",
				TokenURL:  base + "/login/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// BaseURL is the Canvas instance this flow authorizes against.
func (o *CanvasOAuth) BaseURL() string { return o.baseURL }

// AuthURL is where the browser is sent to grant access.
func (o *CanvasOAuth) AuthURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (o *CanvasOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("canvas oauth error: %w", err)
	}
	return tok, nil
}
