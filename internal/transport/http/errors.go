package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"live-quiz-service/internal/domain"
)

const systemErrorMessage = "A system error ocurred"

// statusFor maps a core error to its HTTP status. Unclassified errors are 500.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInput:
		return http.StatusBadRequest
	case domain.KindAccess:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// abortWithError writes {"error": message} and stops the handler chain.
// Details of unclassified errors are logged, never returned.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	message := systemErrorMessage
	var derr *domain.Error
	if errors.As(err, &derr) && status != http.StatusInternalServerError {
		message = derr.Message
	} else {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
