package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"incubator/internal/incubator"
)

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	posts, err := s.Content.ListPosts(r.Context(), true)
	if err != nil {
		log.Printf("list news: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load news")
		return
	}
	writeJSON(w, http.StatusOK, viewPosts(posts))
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	post, err := s.Content.FindPost(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
		return
	case err != nil:
		log.Printf("get news: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load post")
		return
	}
	// Drafts are not public.
	if !post.Published {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, viewPost(post))
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Name and message are required")
		return
	}
	if !validateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	if _, err := s.Content.CreateContactMessage(r.Context(), req.Name, req.Email, req.Message); err != nil {
		log.Printf("contact: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to submit message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Thanks! We will get back to you."})
}

func (s *Server) handleAdminListNews(w http.ResponseWriter, r *http.Request) {
	posts, err := s.Content.ListPosts(r.Context(), false)
	if err != nil {
		log.Printf("admin list news: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load news")
		return
	}
	writeJSON(w, http.StatusOK, viewPosts(posts))
}

type newsPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) handleAdminCreateNews(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req newsPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "Title and body are required")
		return
	}

	authorID := sess.User.ID
	post, err := s.Content.CreatePost(r.Context(), req.Title, req.Body, &authorID)
	if err != nil {
		log.Printf("create news: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, viewPost(post))
}

func (s *Server) handleAdminUpdateNews(w http.ResponseWriter, r *http.Request) {
	var req newsPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "Title and body are required")
		return
	}

	post, err := s.Content.UpdatePost(r.Context(), chi.URLParam(r, "id"), req.Title, req.Body)
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
		return
	case err != nil:
		log.Printf("update news: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update post")
		return
	}
	writeJSON(w, http.StatusOK, viewPost(post))
}

func (s *Server) handleAdminDeleteNews(w http.ResponseWriter, r *http.Request) {
	if err := s.Content.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		log.Printf("delete news: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted."})
}

func (s *Server) handleAdminListContactMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.Content.ListContactMessages(r.Context())
	if err != nil {
		log.Printf("list contact messages: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, viewContactMessages(msgs))
}

type publishNewsRequest struct {
	Publish *bool `json:"publish"`
}

func (s *Server) handleAdminPublishNews(w http.ResponseWriter, r *http.Request) {
	publish := true
	var req publishNewsRequest
	if err := decodeJSON(r, &req); err == nil && req.Publish != nil {
		publish = *req.Publish
	}

	post, err := s.Content.PublishPost(r.Context(), chi.URLParam(r, "id"), publish)
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
		return
	case err != nil:
		log.Printf("publish news: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update post")
		return
	}
	writeJSON(w, http.StatusOK, viewPost(post))
}
