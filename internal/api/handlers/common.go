package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/utils"
)

// writeError answers {"error": <safe message>, "code": <code>} with the
// status mapped from the error code. The full error is attached to the gin
// context for the request logger.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(utils.HTTPStatus(err), models.ErrorResponse{
		Error: utils.MessageOf(err),
		Code:  string(utils.CodeOf(err)),
	})
}
