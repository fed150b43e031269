package storage

import (
	"fmt"
	"strings"
)

// MediaKind captures high-level intent for storage layout decisions.
type MediaKind string

const (
	KindProductImage   MediaKind = "product-image"
	KindDropLookbook   MediaKind = "drop-lookbook"
	KindCampaignBanner MediaKind = "campaign-banner"
)

// MediaPathParams provide required identifiers to compose storage object keys.
type MediaPathParams struct {
	ProductID  string
	DropID     string
	CampaignID string
	FileName   string
}

// BuildMediaPath resolves the storage object path for the given media kind.
func BuildMediaPath(kind MediaKind, params MediaPathParams) (string, error) {
	switch kind {
	case KindProductImage:
		return buildProductImagePath(params)
	case KindDropLookbook:
		return buildDropLookbookPath(params)
	case KindCampaignBanner:
		return buildCampaignBannerPath(params)
	default:
		return "", fmt.Errorf("storage: unsupported media kind %q", kind)
	}
}

func buildProductImagePath(params MediaPathParams) (string, error) {
	productID, err := validateSegment("productID", params.ProductID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("media/products/%s/images/%s", productID, fileName), nil
}

func buildDropLookbookPath(params MediaPathParams) (string, error) {
	dropID, err := validateSegment("dropID", params.DropID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("media/drops/%s/lookbook/%s", dropID, fileName), nil
}

func buildCampaignBannerPath(params MediaPathParams) (string, error) {
	campaignID, err := validateSegment("campaignID", params.CampaignID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("media/campaigns/%s/banners/%s", campaignID, fileName), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
