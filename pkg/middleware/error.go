package middleware

import (
	"net/http"

	"fundcustody/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last error pushed onto the gin context as a JSON body.
// errutil errors use the status mapping; any error carrying its own
// HTTPStatus and JSON rendering is honored as-is.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil {
			return
		}

		switch v := err.Err.(type) {
		case errutil.BaseError:
			c.JSON(v.Code.HTTPStatus(), v.JSON())
		case interface {
			HTTPStatus() int
			JSON() any
		}:
			c.JSON(v.HTTPStatus(), v.JSON())
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"message": err.Error()},
			})
		}
	}
}
