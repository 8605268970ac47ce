package models

// fakerMethods is the set of recognized faker generator identifiers. The
// editing surface offers a subset; the engine accepts all of them.
var fakerMethods = map[string]bool{
	"uuid4":        true,
	"name":         true,
	"first_name":   true,
	"last_name":    true,
	"email":        true,
	"job":          true,
	"address":      true,
	"city":         true,
	"country":      true,
	"company":      true,
	"phone_number": true,
	"ean":          true,
	"url":          true,
	"username":     true,
	"word":         true,
	"sentence":     true,
}

// IsFakerMethod reports whether the identifier names a supported generator.
func IsFakerMethod(method string) bool {
	return fakerMethods[method]
}
