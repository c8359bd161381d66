package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mutafix.dev/pkg/mutafix/internal/domain"
)

func TestIndexCmd_FallsBackToClasspath(t *testing.T) {
	mw := useMockWorkflow(t)
	mw.On("Index", mock.Anything, mock.MatchedBy(func(args domain.IndexArgs) bool {
		return assert.ObjectsAreEqual([]string{"build/classes"}, args.Codebase)
	})).Return(nil).Once()

	_, err := runRoot(t, newIndexCmd(), "index", "-c", "build/classes")
	require.NoError(t, err)
}

func TestIndexCmd_PrefersCodebase(t *testing.T) {
	mw := useMockWorkflow(t)
	mw.On("Index", mock.Anything, mock.MatchedBy(func(args domain.IndexArgs) bool {
		return assert.ObjectsAreEqual([]string{"lib/rt.jar", "build/classes"}, args.Codebase) && args.Parallel == 2
	})).Return(nil).Once()

	_, err := runRoot(t, newIndexCmd(), "index", "-c", "build/classes", "--codebase", "lib/rt.jar,build/classes", "-p", "2")
	require.NoError(t, err)
}
