package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"subgen/types"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// requireAuth accepts the bearer header or, for SSE and download requests
// that cannot set headers, a token query parameter.
func (s *Server) requireAuth(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = ""
		}
	}

	s.mu.RLock()
	email, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.Set("email", email)
	c.Next()
}

func (s *Server) currentUser(c *gin.Context) *userRecord {
	email := c.GetString("email")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[email]
}

func (s *Server) handleSignup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing required fields",
			"details": "Name, email, and password are required",
		})
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Email already registered",
			"details": "Please use a different email address",
		})
		return
	}
	user := &userRecord{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
	s.users[req.Email] = user
	token := uuid.NewString()
	s.tokens[token] = req.Email
	s.mu.Unlock()

	c.JSON(http.StatusCreated, types.AuthResponse{
		AccessToken: token,
		User:        types.User{ID: user.ID, Name: user.Name, Email: user.Email},
		Message:     "User created successfully",
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing required fields",
			"details": "Email and password are required",
		})
		return
	}

	s.mu.Lock()
	user, ok := s.users[req.Email]
	if !ok || user.Password != req.Password {
		s.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Authentication failed",
			"details": "Invalid email or password",
		})
		return
	}
	token := uuid.NewString()
	s.tokens[token] = req.Email
	s.mu.Unlock()

	c.JSON(http.StatusOK, types.AuthResponse{
		AccessToken: token,
		User:        types.User{ID: user.ID, Name: user.Name, Email: user.Email},
		Message:     "Login successful",
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	user := s.currentUser(c)
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": types.User{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")

	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req types.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing request body"})
		return
	}

	email := c.GetString("email")
	s.mu.Lock()
	user := s.users[email]
	if user == nil {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" && req.Email != email {
		if _, exists := s.users[req.Email]; exists {
			s.mu.Unlock()
			c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
			return
		}
		delete(s.users, email)
		user.Email = req.Email
		s.users[req.Email] = user
		for token, e := range s.tokens {
			if e == email {
				s.tokens[token] = req.Email
			}
		}
	}
	if req.Password != "" {
		user.Password = req.Password
	}
	resp := types.User{ID: user.ID, Name: user.Name, Email: user.Email}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"user":    resp,
		"message": "Profile updated successfully",
	})
}
