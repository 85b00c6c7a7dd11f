package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/stwalsh4118/acreage/internal/logger"
	"github.com/stwalsh4118/acreage/internal/metrics"
	"github.com/stwalsh4118/acreage/internal/models"
)

// Content sources reported on ListingContent.
const (
	ContentSourceAI       = "ai"
	ContentSourceTemplate = "template"
)

const descriptionSystemPrompt = "You are a professional real estate copywriter who writes concise, factual land listings."

// TextGenerator produces text for a prompt. A non-nil error means no usable
// text was produced.
type TextGenerator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ContentService defines the interface for listing copy generation.
type ContentService interface {
	// GenerateListingContent returns a title and description for the record.
	// It never fails: provider errors fall back to a template description.
	GenerateListingContent(ctx context.Context, record models.PropertyRecord) models.ListingContent
}

type contentService struct {
	generator TextGenerator
	log       *logger.Logger
}

// NewContentService creates a ContentService. A nil generator disables the
// provider and every description comes from the template.
func NewContentService(generator TextGenerator, log *logger.Logger) ContentService {
	return &contentService{
		generator: generator,
		log:       log,
	}
}

func (s *contentService) GenerateListingContent(ctx context.Context, record models.PropertyRecord) models.ListingContent {
	content := models.ListingContent{
		Title:       ListingTitle(record),
		Description: FallbackDescription(record),
		Source:      ContentSourceTemplate,
	}

	if s.generator == nil {
		metrics.ContentFallbacks.WithLabelValues("disabled").Inc()
		return content
	}

	text, err := s.generator.Complete(ctx, descriptionSystemPrompt, DescriptionPrompt(record))
	if err != nil {
		s.log.Warn("Description generation failed, using template", logger.Fields{
			"parcel_id": record.ParcelID,
			"error":     err.Error(),
		})
		metrics.ContentFallbacks.WithLabelValues("provider_error").Inc()
		return content
	}

	text = collapseWhitespace(text)
	if text == "" {
		s.log.Warn("Description generation returned blank text, using template", logger.Fields{
			"parcel_id": record.ParcelID,
		})
		metrics.ContentFallbacks.WithLabelValues("empty").Inc()
		return content
	}

	content.Description = text
	content.Source = ContentSourceAI
	return content
}

// ListingTitle formats the deterministic listing title,
// e.g. "4.00-Acre Property in Los Angeles, CA".
func ListingTitle(record models.PropertyRecord) string {
	return fmt.Sprintf("%.2f-Acre Property in %s, %s", record.Acreage, record.City, record.State)
}

// FallbackDescription is the template description used when the provider
// produces nothing. The zoning sentence is left out when zoning is blank.
func FallbackDescription(record models.PropertyRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Beautiful %.2f-acre property located in %s, %s County, %s.",
		record.Acreage, record.City, record.County, record.State)
	if zoning := strings.TrimSpace(record.Zoning); zoning != "" {
		fmt.Fprintf(&b, " Zoned %s.", zoning)
	}
	b.WriteString(" Great opportunity for development or investment.")
	return b.String()
}

// DescriptionPrompt builds the user prompt sent to the text generator.
func DescriptionPrompt(record models.PropertyRecord) string {
	zoning := strings.TrimSpace(record.Zoning)
	if zoning == "" {
		zoning = "unspecified"
	}
	return fmt.Sprintf(
		"Write a compelling real estate listing description for a %.2f-acre property in %s, %s County, %s. "+
			"Zoning: %s. Highlight the land's potential uses and location. "+
			"Keep it under 150 words and do not invent amenities or utilities.",
		record.Acreage, record.City, record.County, record.State, zoning,
	)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
