package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cardcaptor/almanac-service/internal/core/domain/almanac"
)

func (s *Server) getAlmanac(c echo.Context) error {
	date, err := almanac.ParseDate(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	forceRefresh := false
	if v := c.QueryParam("refresh"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			forceRefresh = b
		}
	}

	info, err := s.almanacSvc.GetAlmanacInfo(c.Request().Context(), date, forceRefresh)
	if err != nil {
		return almanacErrorToHTTP(err)
	}
	return c.JSON(http.StatusOK, info)
}

// almanacErrorToHTTP maps retrieval failures to responses. The two
// dimensions fail independently, so fetch failures name the dimension
// rather than reporting a generic upstream error.
func almanacErrorToHTTP(err error) error {
	var fetchErr *almanac.FetchError
	if errors.As(err, &fetchErr) {
		return echo.NewHTTPError(http.StatusBadGateway,
			fmt.Sprintf("failed to fetch %s almanac data from upstream", fetchErr.Dimension))
	}

	var resolutionErr *almanac.ResolutionError
	if errors.As(err, &resolutionErr) {
		return echo.NewHTTPError(http.StatusBadGateway, "almanac upstream discovery failed")
	}

	var decodeErr *almanac.DecodeError
	if errors.As(err, &decodeErr) {
		return echo.NewHTTPError(http.StatusInternalServerError,
			fmt.Sprintf("cached %s almanac data for %s is corrupt", decodeErr.Dimension, decodeErr.Date))
	}

	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
