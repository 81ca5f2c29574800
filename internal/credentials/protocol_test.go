package credentials_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/upkeep/internal/credentials"
)

func TestBuildRequestWritesProtocolHostAndTerminator(testInstance *testing.T) {
	request := credentials.BuildRequest("https", "contoso.visualstudio.com")
	require.Equal(testInstance, "protocol=https\nhost=contoso.visualstudio.com\n\n", string(request))
}

func TestParseResponse(testInstance *testing.T) {
	testCases := []struct {
		name               string
		response           string
		expectedAttributes map[string]string
		expectedError      error
		expectedLineNumber int
	}{
		{
			name:     "well_formed",
			response: "protocol=https\nhost=example.com\nusername=someone\npassword=secret\n",
			expectedAttributes: map[string]string{
				"protocol": "https",
				"host":     "example.com",
				"username": "someone",
				"password": "secret",
			},
		},
		{
			name:     "value_containing_separator",
			response: "username=someone\npassword=a=b==c\n",
			expectedAttributes: map[string]string{
				"username": "someone",
				"password": "a=b==c",
			},
		},
		{
			name:               "empty_value",
			response:           "username=\npassword=\n",
			expectedAttributes: map[string]string{"username": "", "password": ""},
		},
		{
			name:     "blank_line_ends_block",
			response: "username=someone\npassword=secret\n\nignored\npassword=after-terminator\n",
			expectedAttributes: map[string]string{
				"username": "someone",
				"password": "secret",
			},
		},
		{
			name:               "carriage_returns_trimmed",
			response:           "username=someone\r\npassword=secret\r\n",
			expectedAttributes: map[string]string{"username": "someone", "password": "secret"},
		},
		{
			name:               "empty_response",
			response:           "",
			expectedAttributes: map[string]string{},
		},
		{
			name:               "malformed_line",
			response:           "username=someone\nnot a pair\n",
			expectedError:      credentials.ErrMalformedLine,
			expectedLineNumber: 2,
		},
		{
			name:               "empty_key",
			response:           "username=someone\n=orphaned value\n",
			expectedError:      credentials.ErrMalformedLine,
			expectedLineNumber: 2,
		},
		{
			name:               "duplicate_key",
			response:           "username=someone\npassword=one\npassword=two\n",
			expectedError:      credentials.ErrDuplicateKey,
			expectedLineNumber: 3,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			attributes, parseError := credentials.ParseResponse(testCase.response)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, parseError, testCase.expectedError)
				var protocolError credentials.ProtocolError
				require.ErrorAs(testInstance, parseError, &protocolError)
				require.Equal(testInstance, testCase.expectedLineNumber, protocolError.LineNumber)
				require.Nil(testInstance, attributes)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedAttributes, attributes)
		})
	}
}

func TestProtocolErrorMessages(testInstance *testing.T) {
	require.Equal(testInstance,
		"credential helper protocol error on line 3: duplicate key \"password\"",
		credentials.ProtocolError{LineNumber: 3, Key: "password", Cause: credentials.ErrDuplicateKey}.Error())
	require.Equal(testInstance,
		"credential helper protocol error: response is missing \"username\"",
		credentials.ProtocolError{Key: "username", Cause: credentials.ErrMissingCredentialField}.Error())
	require.Equal(testInstance,
		"credential helper protocol error on line 1: expected key=value",
		credentials.ProtocolError{LineNumber: 1, Cause: credentials.ErrMalformedLine}.Error())
}
