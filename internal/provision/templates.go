package provision

import (
	"encoding/base64"
	"fmt"

	"github.com/simplevf/svf/internal/sfdc"
)

// ApexResource is a named Apex source body ready to create remotely.
type ApexResource struct {
	Name string
	Body string
}

// ControllerName returns the page's controller class name.
func ControllerName(pageName string) string {
	return pageName + "Controller"
}

// Controller renders the server-side controller class for a page. The
// controller reads the two development-mode custom settings so the page can
// switch between the tunnel URL and the packaged static resource.
func Controller(pageName string) ApexResource {
	name := ControllerName(pageName)
	body := fmt.Sprintf(`
public with sharing class %s {

	public static Simple_VF_Pages__c getSimpleVfPageConfig() {
		return Simple_VF_Pages__c.getInstance('%s');
	}

	public static Simple_VF_Users__c getSimpleVfUserConfig() {
		return Simple_VF_Users__c.getInstance();
	}

	public static Boolean getIsUnderDevelopment() {

		Simple_VF_Pages__c page = getSimpleVfPageConfig();
		Simple_VF_Users__c user = getSimpleVfUserConfig();

		if(page == null || user == null) return false;

		return page.DevelopmentMode__c && user.DevelopmentMode__c;
	}
}
`, name, pageName)
	return ApexResource{Name: name, Body: body}
}

// ControllerTest renders the controller's test class.
func ControllerTest(pageName string) ApexResource {
	name := pageName + "Controller_Test"
	body := fmt.Sprintf(`
@isTest
private class %[1]s {

	private static final String PAGE_NAME = '%[2]s';
	private static final String TUNNEL_URL = 'https://tunnel.domain.com';

	@testSetup
	static void setup() {

		insert new Simple_VF_Pages__c(
			Name = PAGE_NAME,
			DevelopmentMode__c = true,
			TunnelUrl__c = TUNNEL_URL
		);

		insert new Simple_VF_Users__c(
			SetupOwnerId = Userinfo.getUserId(),
			DevelopmentMode__c = true
		);

	}

	@isTest
	static void getSimpleVfPageConfig_FindsSettingSuccessfully() {

		Test.startTest();
		Simple_VF_Pages__c pageConfig = %[2]sController.getSimpleVfPageConfig();
		Test.stopTest();

		System.assertNotEquals(null, pageConfig);
		System.assertEquals(TUNNEL_URL, pageConfig.TunnelUrl__c);
	}

	@isTest
	static void getIsUnderDevelopment_ReturnsTrueWhenBothFlagsSet() {

		Test.startTest();
		Boolean underDevelopment = %[2]sController.getIsUnderDevelopment();
		Test.stopTest();

		System.assertEquals(true, underDevelopment);
	}
}
`, name, pageName)
	return ApexResource{Name: name, Body: body}
}

// PageMarkup wraps the plugin's html in the Visualforce page shell bound to
// the page's controller.
func PageMarkup(pageName, html string) string {
	return fmt.Sprintf(`
		<apex:page controller="%s" showHeader="false" standardStylesheets="false" sidebar="false" applyHtmlTag="false" applyBodyTag="false" docType="html-5.0">
			%s
		</apex:page>
	`, ControllerName(pageName), html)
}

// PlaceholderBody is the base64 text body the placeholder static resource
// is created with; deploys replace it with the real zip archive.
func PlaceholderBody() string {
	return base64.StdEncoding.EncodeToString([]byte("placeholder\n"))
}

// Custom-setting object names
const (
	PageSettingsObject = "Simple_VF_Pages__c"
	UserSettingsObject = "Simple_VF_Users__c"
)

// SimpleVFPages is the page-level custom setting definition: one list
// record per page holding its development-mode flag and tunnel URL.
func SimpleVFPages() sfdc.CustomObject {
	return sfdc.CustomObject{
		FullName:           PageSettingsObject,
		CustomSettingsType: "List",
		Description:        "Holds page information for the Simple VF build system.",
		Label:              "Simple VF Pages",
		Visibility:         "Protected",
		Fields: []sfdc.CustomField{
			{
				FullName:       "DevelopmentMode__c",
				DefaultValue:   "false",
				Description:    "Determines if the current page is in development mode.",
				InlineHelpText: "Determines if the current page is in development mode.",
				Label:          "Development Mode",
				Type:           "Checkbox",
			},
			{
				FullName:       "TunnelUrl__c",
				Description:    "Holds the tunnel url.",
				InlineHelpText: "Holds the tunnel url.",
				Label:          "Tunnel Url",
				Length:         255,
				Type:           "Text",
			},
		},
	}
}

// SimpleVFUsers is the user-level (hierarchy) custom setting definition
// holding each user's development-mode flag.
func SimpleVFUsers() sfdc.CustomObject {
	return sfdc.CustomObject{
		FullName:           UserSettingsObject,
		CustomSettingsType: "Hierarchy",
		Description:        "Holds user information for the Simple VF build system.",
		Label:              "Simple VF Users",
		Visibility:         "Protected",
		Fields: []sfdc.CustomField{
			{
				FullName:       "DevelopmentMode__c",
				DefaultValue:   "false",
				Description:    "Determines if development mode has been turned on for the current user.",
				InlineHelpText: "Determines if development mode has been turned on for the current user.",
				Label:          "Development Mode",
				Type:           "Checkbox",
			},
		},
	}
}
