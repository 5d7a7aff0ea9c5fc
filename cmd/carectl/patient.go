package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	patientCmd := &cobra.Command{Use: "patient", Short: "Patient operations"}

	// signup
	var username, password, fullName, familyInfo, hobbies, emName, emPhone string
	signupCmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a patient account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" || fullName == "" {
				return fmt.Errorf("--username, --password and --name required")
			}
			payload := map[string]interface{}{
				"username":  username,
				"password":  password,
				"full_name": fullName,
			}
			if familyInfo != "" {
				payload["family_info"] = familyInfo
			}
			if hobbies != "" {
				payload["hobbies"] = hobbies
			}
			if emName != "" {
				payload["emergency_contact_name"] = emName
			}
			if emPhone != "" {
				payload["emergency_contact_phone"] = emPhone
			}
			data, err := doPostJSON(endpoint("/auth/patient/signup", nil), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	signupCmd.Flags().StringVarP(&username, "username", "u", "", "Patient username (required)")
	signupCmd.Flags().StringVarP(&password, "password", "p", "", "Password (required)")
	signupCmd.Flags().StringVarP(&fullName, "name", "n", "", "Full name (required)")
	signupCmd.Flags().StringVar(&familyInfo, "family", "", "Family information")
	signupCmd.Flags().StringVar(&hobbies, "hobbies", "", "Hobbies")
	signupCmd.Flags().StringVar(&emName, "emergency-name", "", "Emergency contact name")
	signupCmd.Flags().StringVar(&emPhone, "emergency-phone", "", "Emergency contact phone")
	_ = signupCmd.MarkFlagRequired("username")
	_ = signupCmd.MarkFlagRequired("password")
	_ = signupCmd.MarkFlagRequired("name")
	patientCmd.AddCommand(signupCmd)

	// login
	var loginUser, loginPass string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as a patient and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if loginUser == "" || loginPass == "" {
				return fmt.Errorf("--username and --password required")
			}
			payload := map[string]interface{}{"username": loginUser, "password": loginPass}
			data, err := doPostJSON(endpoint("/auth/patient/login", nil), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "", "Patient username (required)")
	loginCmd.Flags().StringVarP(&loginPass, "password", "p", "", "Password (required)")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
	patientCmd.AddCommand(loginCmd)

	// goals
	goalsCmd := &cobra.Command{
		Use:   "goals",
		Short: "List the logged-in patient's open goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(endpoint("/patient/goals", nil))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	patientCmd.AddCommand(goalsCmd)

	// medications
	medsCmd := &cobra.Command{
		Use:   "medications",
		Short: "List the logged-in patient's active medications",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(endpoint("/patient/medications", nil))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	patientCmd.AddCommand(medsCmd)

	// log-dose
	logCmd := &cobra.Command{
		Use:   "log-dose MED_NAME",
		Short: "Record one taken dose of a medication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"med_name": {args[0]}}
			data, err := doPostJSON(endpoint("/patient/medications/log", q), map[string]interface{}{})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	patientCmd.AddCommand(logCmd)

	rootCmd.AddCommand(patientCmd)
}
