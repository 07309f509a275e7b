package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/learnloop/api/model"
	"github.com/learnloop/api/services/storage"
	"github.com/learnloop/api/utils/pdfvalidation"
)

// textPreviewLimit caps the extracted text stored alongside the material
const textPreviewLimit = 8000

// MaterialService handles uploaded lesson materials: validation, object
// storage, and text extraction for the tutor's context window
type MaterialService struct {
	db        *gorm.DB
	spaces    *storage.SpacesClient
	extractor *PDFExtractor
}

// NewMaterialService creates a new material service
func NewMaterialService(db *gorm.DB, spaces *storage.SpacesClient) *MaterialService {
	return &MaterialService{
		db:        db,
		spaces:    spaces,
		extractor: NewPDFExtractor(),
	}
}

// UploadMaterial validates a PDF upload, stores it in Spaces, extracts a
// text preview and persists the material record
func (s *MaterialService) UploadMaterial(ctx context.Context, lessonID, uploaderID uint, file *multipart.FileHeader) (*model.LessonMaterial, error) {
	var lesson model.Lesson
	if err := s.db.WithContext(ctx).First(&lesson, lessonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("lesson not found")
		}
		return nil, fmt.Errorf("failed to load lesson: %w", err)
	}

	validation, err := pdfvalidation.ValidatePDFFile(file, pdfvalidation.MaterialLimits)
	if err != nil {
		return nil, fmt.Errorf("failed to validate upload: %w", err)
	}
	if !validation.Valid {
		return nil, fmt.Errorf("invalid material: %s", validation.Error)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	key := storage.GenerateKey(fmt.Sprintf("materials/lesson-%d", lessonID), file.Filename)
	url, err := s.spaces.UploadBytes(ctx, key, content, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to store material: %w", err)
	}

	material := &model.LessonMaterial{
		LessonID:   lessonID,
		UploaderID: uploaderID,
		FileName:   file.Filename,
		StorageKey: key,
		URL:        url,
		FileSize:   file.Size,
		PageCount:  validation.PageCount,
	}

	// Extraction failure is not fatal: the file is already stored
	if extraction, err := s.extractor.ExtractText(content); err != nil {
		log.Printf("Text extraction failed for material %s: %v", key, err)
	} else {
		material.TextPreview = truncatePreview(extraction.Text)
		if meta, err := json.Marshal(map[string]interface{}{
			"extracted_pages": extraction.PageCount,
			"preview_chars":   len(material.TextPreview),
		}); err == nil {
			material.Metadata = datatypes.JSON(meta)
		}
	}

	if err := s.db.WithContext(ctx).Create(material).Error; err != nil {
		// Roll back the stored object so the bucket does not leak orphans
		if delErr := s.spaces.DeleteFile(ctx, key); delErr != nil {
			log.Printf("Failed to clean up orphaned material %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("failed to save material: %w", err)
	}

	return material, nil
}

// GetMaterialsByLesson returns all materials attached to a lesson
func (s *MaterialService) GetMaterialsByLesson(ctx context.Context, lessonID uint) ([]model.LessonMaterial, error) {
	var materials []model.LessonMaterial

	err := s.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("created_at DESC").
		Find(&materials).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch materials: %w", err)
	}

	return materials, nil
}

// DeleteMaterial removes a material record and its stored object.
// Only the uploader or an admin may delete.
func (s *MaterialService) DeleteMaterial(ctx context.Context, materialID, userID uint, isAdmin bool) error {
	var material model.LessonMaterial
	if err := s.db.WithContext(ctx).First(&material, materialID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("material not found")
		}
		return fmt.Errorf("failed to load material: %w", err)
	}

	if material.UploaderID != userID && !isAdmin {
		return fmt.Errorf("not allowed to delete this material")
	}

	if err := s.db.WithContext(ctx).Delete(&material).Error; err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}

	if err := s.spaces.DeleteFile(ctx, material.StorageKey); err != nil {
		log.Printf("Failed to delete stored object %s: %v", material.StorageKey, err)
	}

	return nil
}

func truncatePreview(text string) string {
	if len(text) <= textPreviewLimit {
		return text
	}
	return text[:textPreviewLimit]
}
