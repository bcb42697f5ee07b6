// Package bankrate fetches the published annual lending reference rate from
// the central bank's SOAP web service.
package bankrate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/jmorales-gt/crediventa/internal/config"
)

// Client handles integration with the central bank rate service.
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new rate client.
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.RateURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildSOAPRequest creates a SOAP request for the active lending rate.
func (c *Client) buildSOAPRequest() string {
	return `<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<TasaActiva xmlns="http://www.banguat.gob.gt/variables/ws/" />
			</soap12:Body>
		</soap12:Envelope>`
}

// sendRequest posts the SOAP envelope to the rate service.
func (c *Client) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://www.banguat.gob.gt/variables/ws/TasaActiva")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	c.log.Debugf("rate service XML response: %s", string(body))

	return body, nil
}

// parseXMLResponse extracts the annual rate from the response envelope.
func (c *Client) parseXMLResponse(rawBody []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %v", err)
	}

	elements := doc.FindElements("//TasaActivaResult/tasa")
	if len(elements) == 0 {
		return 0, fmt.Errorf("no rate data found in XML")
	}

	var rate float64
	if _, err := fmt.Sscanf(elements[0].Text(), "%f", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse rate: %v", err)
	}

	return rate, nil
}

// AnnualLendingRate retrieves the current annual lending reference rate.
func (c *Client) AnnualLendingRate(ctx context.Context) (float64, error) {
	body, err := c.sendRequest(ctx, c.buildSOAPRequest())
	if err != nil {
		return 0, err
	}

	rate, err := c.parseXMLResponse(body)
	if err != nil {
		return 0, err
	}

	c.log.Infof("Retrieved annual lending rate: %.2f%%", rate)
	return rate, nil
}
