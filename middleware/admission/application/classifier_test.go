package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testClassifier() *Classifier {
	return NewClassifier(ClassifierConfig{
		PublicRoutes:     []string{"/", "/products", "/sign-in", "/sign-up"},
		ProtectedRoutes:  []string{"/dashboard", "/products"},
		AdminRoutes:      []string{"/admin"},
		StaticPrefixes:   []string{"/static/", "/_next/"},
		StaticExtensions: []string{".css", "js", ".PNG"},
	})
}

func TestClassifier_PublicOverridesProtected(t *testing.T) {
	c := testClassifier()

	rc := c.Classify("/products")
	assert.True(t, rc.Public)
	assert.True(t, rc.Protected)
	assert.False(t, rc.RequiresAuth(), "public prevails when both sets match")
}

func TestClassifier_ProtectedRequiresAuth(t *testing.T) {
	c := testClassifier()

	rc := c.Classify("/dashboard")
	assert.False(t, rc.Public)
	assert.True(t, rc.Protected)
	assert.True(t, rc.RequiresAuth())

	// matchers casam subcaminhos
	assert.True(t, c.Classify("/dashboard/settings").RequiresAuth())
}

func TestClassifier_AdminIsRecordedNotExclusive(t *testing.T) {
	c := testClassifier()

	rc := c.Classify("/admin/users")
	assert.True(t, rc.Admin)
	assert.False(t, rc.RequiresAuth(), "admin alone does not force auth at this layer")
}

func TestClassifier_RootMatchesOnlyRoot(t *testing.T) {
	c := testClassifier()

	assert.True(t, c.Classify("/").Public)
	assert.False(t, c.Classify("/anything").Public)
}

func TestClassifier_Static(t *testing.T) {
	c := testClassifier()

	assert.True(t, c.Static("/static/app.wasm"))
	assert.True(t, c.Static("/_next/chunks/main.js"))
	assert.True(t, c.Static("/images/logo.png"), "extensions are case-insensitive and normalized")
	assert.True(t, c.Static("/app.js"), "extension without dot is normalized")
	assert.True(t, c.Static("/theme.css"))
	assert.False(t, c.Static("/dashboard"))
	assert.False(t, c.Static("/api/items"))
}
