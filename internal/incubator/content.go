package incubator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const newsColumns = `"id","title","body","published","published_at","author_id","created_at","updated_at"`

// ContentRepository backs the public site: news posts and contact-form
// messages.
type ContentRepository struct {
	DB *pgxpool.Pool
}

func NewContentRepository(db *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) CreatePost(ctx context.Context, title, body string, authorID *string) (*NewsPost, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO news_posts ("id","title","body","author_id")
		VALUES ($1,$2,$3,$4)
		RETURNING `+newsColumns, id, title, body, authorID)
	return scanPost(row)
}

func (r *ContentRepository) PublishPost(ctx context.Context, id string, publish bool) (*NewsPost, error) {
	var publishedAt *time.Time
	if publish {
		now := time.Now()
		publishedAt = &now
	}
	row := r.DB.QueryRow(ctx, `
		UPDATE news_posts
		SET "published"=$1, "published_at"=$2, "updated_at"=NOW()
		WHERE "id"=$3
		RETURNING `+newsColumns, publish, publishedAt, id)
	post, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

func (r *ContentRepository) UpdatePost(ctx context.Context, id, title, body string) (*NewsPost, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE news_posts
		SET "title"=$1, "body"=$2, "updated_at"=NOW()
		WHERE "id"=$3
		RETURNING `+newsColumns, title, body, id)
	post, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

func (r *ContentRepository) DeletePost(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM news_posts WHERE "id"=$1`, id)
	return err
}

func (r *ContentRepository) FindPost(ctx context.Context, id string) (*NewsPost, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+newsColumns+` FROM news_posts WHERE "id"=$1`, id)
	post, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

// ListPosts returns news posts, newest publication first. publishedOnly is
// what the public site uses; the back-office lists everything.
func (r *ContentRepository) ListPosts(ctx context.Context, publishedOnly bool) ([]NewsPost, error) {
	query := `SELECT ` + newsColumns + ` FROM news_posts`
	if publishedOnly {
		query += ` WHERE "published"=TRUE`
	}
	query += ` ORDER BY COALESCE("published_at","created_at") DESC, "id"`

	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []NewsPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (r *ContentRepository) CreateContactMessage(ctx context.Context, name, email, message string) (*ContactMessage, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO contact_messages ("id","name","email","message")
		VALUES ($1,$2,$3,$4)
		RETURNING "id","name","email","message","created_at"
	`, id, name, email, message)

	var m ContactMessage
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ContentRepository) ListContactMessages(ctx context.Context) ([]ContactMessage, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT "id","name","email","message","created_at"
		FROM contact_messages
		ORDER BY "created_at" DESC, "id"
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []ContactMessage
	for rows.Next() {
		var m ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanPost(row pgx.Row) (*NewsPost, error) {
	var p NewsPost
	if err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Body,
		&p.Published,
		&p.PublishedAt,
		&p.AuthorID,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
