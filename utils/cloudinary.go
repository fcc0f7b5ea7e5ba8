package utils

import (
	"stylo/config"
	"stylo/services/storage"

	"go.uber.org/zap"
)

// Cloudinary returns the Cloudinary-backed StorageService configured by CLOUDINARY_URL.
// Without a URL uploads are disabled and callers skip them.
func Cloudinary() storage.StorageService {
	url := config.AppConfig.CloudinaryURL
	if url == "" {
		GetLogger().Info("CLOUDINARY_URL not set, photo uploads disabled")
		return storage.DisabledStorage{}
	}
	svc, err := storage.NewCloudinaryStorageService(url)
	if err != nil {
		GetLogger().Error("Failed to initialize Cloudinary, photo uploads disabled", zap.Error(err))
		return storage.DisabledStorage{}
	}
	return svc
}
