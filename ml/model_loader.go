package ml

// LoadModel reads a saved model of the given type. The artifact must have been
// trained on schema.
func LoadModel(modelType, path string, schema Schema) (MLModel, error) {
	model, err := newModel(modelType, schema, ForestConfig{})
	if err != nil {
		return nil, err
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}
