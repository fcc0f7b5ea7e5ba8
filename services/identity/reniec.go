package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stylo/models"
	"stylo/utils"

	"go.uber.org/zap"
)

// RegistryService looks people up in the national identity registry.
type RegistryService interface {
	// LookupDNI returns the registry record of a DNI. Lookup failures come back as
	// Found == false with Error set, never as an error.
	LookupDNI(ctx context.Context, dni string) models.RegistryPerson
}

// ReniecClient queries a RENIEC proxy API over HTTP.
type ReniecClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewReniecClient(baseURL string, logger *zap.Logger) *ReniecClient {
	return &ReniecClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
	}
}

type reniecResponse struct {
	Data *struct {
		PreNombres   string `json:"preNombres"`
		ApePaterno   string `json:"apePaterno"`
		ApeMaterno   string `json:"apeMaterno"`
		FeNacimiento string `json:"feNacimiento"`
		Sexo         string `json:"sexo"`
	} `json:"data"`
}

func (c *ReniecClient) LookupDNI(ctx context.Context, dni string) models.RegistryPerson {
	dni = utils.DigitsOnly(dni)
	if len(dni) != 8 {
		return models.RegistryPerson{Found: false, Error: "DNI debe tener 8 dígitos"}
	}

	endpoint := c.BaseURL + "?" + url.Values{"dni": {dni}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.RegistryPerson{Found: false, Error: "Error de conexión"}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Warn("RENIEC lookup failed", zap.Error(err))
		return models.RegistryPerson{Found: false, Error: fmt.Sprintf("Error de conexión: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.Logger.Warn("RENIEC lookup returned an error status", zap.Int("status", resp.StatusCode))
		return models.RegistryPerson{Found: false, Error: fmt.Sprintf("Error de conexión: HTTP %d", resp.StatusCode)}
	}

	var body reniecResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.RegistryPerson{Found: false, Error: "Error procesando respuesta"}
	}
	if body.Data == nil || body.Data.PreNombres == "" {
		return models.RegistryPerson{Found: false, Error: "No se encontraron datos"}
	}

	person := models.RegistryPerson{
		Found:           true,
		FirstName:       strings.TrimSpace(body.Data.PreNombres),
		LastNamePaterno: strings.TrimSpace(body.Data.ApePaterno),
		LastNameMaterno: strings.TrimSpace(body.Data.ApeMaterno),
		BirthDate:       normalizeDate(body.Data.FeNacimiento),
	}
	if sexo := strings.TrimSpace(body.Data.Sexo); sexo != "" {
		person.Gender = "F"
		if strings.EqualFold(sexo, "m") {
			person.Gender = "M"
		}
	}
	return person
}

// normalizeDate accepts YYYY-MM-DD or DD/MM/YYYY and returns YYYY-MM-DD, or "" when unparseable.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
