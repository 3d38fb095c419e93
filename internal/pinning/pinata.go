package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	pinataFileURL = "https://api.pinata.cloud/pinning/pinFileToIPFS"
	pinataJSONURL = "https://api.pinata.cloud/pinning/pinJSONToIPFS"
)

// ErrNoJWT is the precondition failure when pinning is not configured.
var ErrNoJWT = errors.New("PINATA_JWT is not configured")

// Client pins auction metadata blobs to IPFS through Pinata, returning
// content identifiers for the on-chain desc_hash field.
type Client struct {
	jwt        string
	httpClient *http.Client

	fileURL string
	jsonURL string
}

// NewClient creates a Pinata client. The JWT may be empty; calls then
// fail fast with ErrNoJWT.
func NewClient(jwt string) *Client {
	return &Client{
		jwt: jwt,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		fileURL: pinataFileURL,
		jsonURL: pinataJSONURL,
	}
}

type pinataResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinFile uploads a file and returns its CID.
func (c *Client) PinFile(ctx context.Context, name, contentType string, body []byte) (string, error) {
	if c.jwt == "" {
		return "", ErrNoJWT
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, name)}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(body); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	meta, _ := json.Marshal(map[string]string{"name": name})
	if err := writer.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.fileURL, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build pin request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.doPin(req, "file")
}

// PinJSON pins a JSON document and returns its CID.
func (c *Client) PinJSON(ctx context.Context, name string, payload any) (string, error) {
	if c.jwt == "" {
		return "", ErrNoJWT
	}

	body, err := json.Marshal(map[string]any{
		"pinataMetadata": map[string]string{"name": name},
		"pinataContent":  payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal pin payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.jsonURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build pin request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", "application/json")

	return c.doPin(req, "JSON")
}

func (c *Client) doPin(req *http.Request, kind string) (string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Pinata %s upload failed: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("Pinata %s upload failed: %s", kind, string(detail))
	}

	var data pinataResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode Pinata response: %w", err)
	}
	if data.IpfsHash == "" {
		return "", fmt.Errorf("Pinata %s upload returned no CID", kind)
	}
	return data.IpfsHash, nil
}

// Metadata is the pinned auction metadata document.
type Metadata struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Image       string             `json:"image"`
	ExternalURL string             `json:"external_url"`
	Properties  MetadataProperties `json:"properties"`
}

// MetadataProperties carries the auction fields inside the document.
type MetadataProperties struct {
	AuctionID       string `json:"auctionId"`
	SellerAddress   string `json:"sellerAddress"`
	StartPriceXRP   string `json:"startPriceXrp,omitempty"`
	MinIncrementXRP string `json:"minIncrementXrp,omitempty"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	CreatedAt       string `json:"createdAt"`
}

// PinResult reports both pinned blobs.
type PinResult struct {
	ImageCID string   `json:"imageCid"`
	MetaCID  string   `json:"metaCid"`
	Metadata Metadata `json:"metadata"`
}

// PinAuctionMetadata pins the image, then builds and pins the metadata
// document referencing it.
func (c *Client) PinAuctionMetadata(ctx context.Context, imageName, imageType string, image []byte, props MetadataProperties, title, description string) (*PinResult, error) {
	imageCID, err := c.PinFile(ctx, imageName, imageType, image)
	if err != nil {
		return nil, err
	}

	props.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	metadata := Metadata{
		Name:        title,
		Description: description,
		Image:       "ipfs://" + imageCID,
		ExternalURL: "https://testnet.xrpl.org/",
		Properties:  props,
	}

	metaCID, err := c.PinJSON(ctx, props.AuctionID+".json", metadata)
	if err != nil {
		return nil, err
	}

	return &PinResult{
		ImageCID: imageCID,
		MetaCID:  metaCID,
		Metadata: metadata,
	}, nil
}
