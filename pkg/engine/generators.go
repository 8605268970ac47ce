package engine

import (
	"fmt"

	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

func (e *Engine) fakerValue(p models.FakerParams) (any, error) {
	switch p.Method {
	case "uuid4":
		return e.faker.UUID(), nil
	case "name":
		return e.faker.Name(), nil
	case "first_name":
		return e.faker.FirstName(), nil
	case "last_name":
		return e.faker.LastName(), nil
	case "email":
		return e.faker.Email(), nil
	case "job":
		return e.faker.JobTitle(), nil
	case "address":
		return e.faker.Address().Address, nil
	case "city":
		return e.faker.City(), nil
	case "country":
		return e.faker.Country(), nil
	case "company":
		return e.faker.Company(), nil
	case "phone_number":
		return e.faker.Phone(), nil
	case "ean":
		return e.faker.Numerify("#############"), nil
	case "url":
		return e.faker.URL(), nil
	case "username":
		return e.faker.Username(), nil
	case "word":
		return e.faker.Word(), nil
	case "sentence":
		return e.faker.Sentence(8), nil
	}
	return nil, fmt.Errorf("unknown faker method %q", p.Method)
}

func (e *Engine) integerValue(p models.IntegerParams) (any, error) {
	if p.Min > p.Max {
		return nil, fmt.Errorf("min %d exceeds max %d", p.Min, p.Max)
	}
	return p.Min + int64(e.faker.IntRange(0, int(p.Max-p.Min))), nil
}

func (e *Engine) booleanValue(p models.BooleanParams) (any, error) {
	return e.faker.IntRange(1, 100) <= p.Probability, nil
}

func (e *Engine) regexValue(p models.RegexParams) (any, error) {
	return e.faker.Regex(p.Pattern), nil
}

func (e *Engine) distributionValue(p models.DistributionParams) (any, error) {
	if len(p.Options) == 0 {
		return nil, fmt.Errorf("no options to choose from")
	}
	if p.Weights == nil {
		return p.Options[e.faker.IntRange(0, len(p.Options)-1)], nil
	}
	if len(p.Options) != len(p.Weights) {
		return nil, fmt.Errorf("options and weights lengths differ")
	}

	options := make([]any, len(p.Options))
	weights := make([]float32, len(p.Weights))
	for i, o := range p.Options {
		options[i] = o
		weights[i] = float32(p.Weights[i])
	}
	value, err := e.faker.Weighted(options, weights)
	if err != nil {
		return nil, fmt.Errorf("weighted choice: %w", err)
	}
	return value, nil
}
